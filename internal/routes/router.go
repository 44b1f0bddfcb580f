package routes

import (
	"net/http"

	"summer-miles/ledger/internal/api"
	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	"summer-miles/ledger/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes builds the HTTP surface around already initialised dependencies.
func RegisterRoutes(deps *api.Dependencies, cfg config.Config, metricsReg *metrics.MetricsRegistry, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.Logging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthCheck", api.HealthCheckHandler(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, metricsReg)
	RegisterAPIRoutes(r, deps, cfg, metricsReg, limiter)

	logging.Info("Router initialized", "rate_limit_rps", cfg.HTTP.RateLimitRPS, "origins", cfg.HTTP.AllowedOrigins)
	return r
}
