package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/routes"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/payments"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/poolfinance"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pools"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pricing"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/config"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/migrate"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/mpesa"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := mpesa.NewClient(cfg.Mpesa, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mpesa client", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	limits := pricing.SimulatorLimits{
		MaxRuns:   cfg.Pricing.MaxSimulationRuns,
		TopViable: cfg.Pricing.TopViableResults,
		TopFailed: cfg.Pricing.TopFailedResults,
	}
	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()), settingsService, limits, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	aggregator, err := poolfinance.NewAggregator(poolfinance.NewRepository(dbClient.DB()), settingsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create finance aggregator", err)
		os.Exit(1)
	}

	poolService, err := pools.NewService(pools.NewRepository(dbClient.DB()), dbClient, aggregator, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pool service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, poolService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, pricingService, poolService, paymentService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
