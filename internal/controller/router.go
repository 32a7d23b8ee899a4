package controller

import (
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	sweep "github.com/cassiomorais/checkout/internal/application/dlq"
	"github.com/cassiomorais/checkout/internal/application/reconcile"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/checkout/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	OrderRepo        order.Repository
	CreateOrder      *checkout.CreateOrderUseCase
	Reconciler       *reconcile.Reconciler
	StatusCheck      *reconcile.StatusCheckUseCase
	Sweeper          *sweep.Sweeper
	Metrics          *observability.Metrics
	CORSConfig       config.CORSConfig
	WebhookRateLimit int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Gateway-Timestamp"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))
	r.Use(customMW.SecurityHeaders())

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CreateOrder, deps.OrderRepo)
	paymentH := NewPaymentController(deps.Reconciler, deps.StatusCheck)
	adminH := NewAdminController(deps.OrderRepo, deps.Sweeper)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Orders
		r.Post("/orders", checkoutH.Create)
		r.Get("/orders/{id}", checkoutH.Get)

		// Payments. The callback route is rate limited separately so a
		// gateway retry storm cannot starve checkout traffic.
		r.With(customMW.RateLimit(deps.WebhookRateLimit)).
			Post("/payments/callback", paymentH.Webhook)
		r.Post("/payments/status-check", paymentH.StatusCheck)

		// Operator endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Put("/orders/{id}/delivery-status", adminH.UpdateDeliveryStatus)
			r.Get("/dlq/stats", adminH.DLQStats)
			r.Post("/dlq/{transaction_uuid}/retry", adminH.RetryFailedPayment)
		})
	})

	return r
}
