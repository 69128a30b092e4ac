package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VSyncglobal/gruppy-backend-sub000/api/controllers"
	webhookcontrollers "github.com/VSyncglobal/gruppy-backend-sub000/api/controllers/webhooks"
	"github.com/VSyncglobal/gruppy-backend-sub000/api/middleware"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/payments"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pools"
	"github.com/VSyncglobal/gruppy-backend-sub000/internal/pricing"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/config"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/db"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	pricingService pricing.Service,
	poolService pools.Service,
	paymentService payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mpesa", webhookcontrollers.MpesaCallback(paymentService, cfg.Mpesa.WebhookSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/calculate", controllers.PricingCalculate(pricingService, logg))
			r.Post("/simulate", controllers.PricingSimulate(pricingService, logg))
		})

		r.Route("/pools", func(r chi.Router) {
			r.With(middleware.RequirePoolOperator(logg)).Post("/", controllers.PoolCreate(poolService, logg))
			r.Get("/", controllers.PoolList(poolService, logg))
			r.Get("/{poolID}", controllers.PoolGet(poolService, logg))
			r.Post("/{poolID}/join", controllers.PoolJoin(poolService, logg))
		})

		r.Get("/payments/{paymentID}", controllers.PaymentGet(paymentService, logg))
	})

	return r
}
