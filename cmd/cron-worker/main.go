package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/VSyncglobal/gruppy-backend-sub000/internal/cron"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/payments"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/poolfinance"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/settings"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/config"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/metrics"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/migrate"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	aggregator, err := poolfinance.NewAggregator(poolfinance.NewRepository(dbClient.DB()), settingsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create finance aggregator", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	staleJob, err := cron.NewStalePaymentJob(cron.StalePaymentJobParams{
		Logger:      logg,
		DB:          dbClient,
		Payments:    payments.NewRepository(dbClient.DB()),
		Aggregator:  aggregator,
		Metrics:     metricsCollector,
		GraceWindow: cfg.Jobs.PaymentGraceWindow,
		Schedule:    cfg.Jobs.ExpirySchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale payment job", err)
		os.Exit(1)
	}

	finalizationJob, err := cron.NewPoolFinalizationJob(cron.PoolFinalizationJobParams{
		Logger:     logg,
		DB:         dbClient,
		Aggregator: aggregator,
		Settings:   settingsService,
		Metrics:    metricsCollector,
		Schedule:   cfg.Jobs.FinalizationSchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pool finalization job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewPricingRetentionJob(cron.PricingRetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Metrics:   metricsCollector,
		Retention: cfg.Jobs.PricingRetention,
		Schedule:  cfg.Jobs.PricingCleanupSchedule,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(staleJob, finalizationJob, retentionJob)

	locks := cron.LockProvider(func(jobName string) (cron.Lock, error) {
		return cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+jobName), 0)
	})

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks:    locks,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
