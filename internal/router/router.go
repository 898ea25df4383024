package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rosenban/rosenban/internal/handler"
	customMiddleware "github.com/rosenban/rosenban/internal/middleware"
)

func NewRouter(
	statusHandler *handler.StatusHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	pushHandler *handler.PushHandler,
	digestHandler *handler.DigestHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(customMiddleware.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/status", func(r chi.Router) {
		r.Get("/", statusHandler.GetAll)
		r.Post("/", statusHandler.SubmitBatch)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", subscriptionHandler.Upsert)
		r.Delete("/", subscriptionHandler.Disable)
	})

	r.Post("/push/register", pushHandler.Register)
	r.Post("/notify/digest", digestHandler.Trigger)

	// Health & Readiness Routes
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
