package routes

import (
	"net/http"

	"diversifia/ordersync/internal/api"
	"diversifia/ordersync/internal/config"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/metrics"
	"diversifia/ordersync/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes builds the HTTP surface: trigger endpoints, health and metrics.
func RegisterRoutes(handlers *api.Handlers, metricsReg *metrics.MetricsRegistry, gatherer prometheus.Gatherer, httpCfg config.HTTP) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))

	// Handlers answer their own preflights.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:     []string{"X-Request-ID"},
		AllowCredentials:   false,
		OptionsPassthrough: true,
		MaxAge:             300,
	}))

	r.Get("/healthCheck", handlers.HealthCheck())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Manual trigger and status, optionally behind a bearer token
	r.Group(func(sync chi.Router) {
		sync.Use(middleware.InFlightMiddleware(metricsReg))
		sync.Use(middleware.BearerAuth(httpCfg.JWTSecret))
		sync.HandleFunc("/sync/draft-orders", handlers.TriggerDraftSync())
		sync.Get("/sync/status", handlers.SyncStatus())
	})

	// Dolibarr webhook, throttled per client IP
	limiter := middleware.NewRateLimiter(httpCfg.WebhookRatePerSec, httpCfg.WebhookBurst)
	r.Group(func(hooks chi.Router) {
		hooks.Use(middleware.InFlightMiddleware(metricsReg))
		hooks.Use(limiter.Middleware)
		hooks.HandleFunc("/webhooks/dolibarr", handlers.DolibarrWebhook())
	})

	logging.Info("Router initialized",
		"auth_enabled", httpCfg.JWTSecret != "",
		"webhook_rate_per_sec", httpCfg.WebhookRatePerSec,
	)

	return r
}
