package routes

import (
	"summer-miles/ledger/internal/api"
	"summer-miles/ledger/internal/config"
	"summer-miles/ledger/internal/metrics"
	"summer-miles/ledger/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, cfg config.Config, metricsReg *metrics.MetricsRegistry, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.DemoUserID))
		v1.Use(middleware.InFlightMiddleware(metricsReg))

		// Reads
		v1.Get("/activities", api.TimelineHandler(deps))
		v1.Get("/activities/{activityID}", api.GetActivityHandler(deps))
		v1.Get("/aggregate", api.AggregateHandler(deps))
		v1.Get("/community/daily", api.CommunityDailyHandler(deps))
		v1.Get("/export", api.ExportHandler(deps))
		v1.Get("/sync/runs", api.SyncRunsHandler(deps))
		v1.Get("/sync/conditions/{provider}", api.GetConditionsHandler(deps))
		v1.Get("/connections/{provider}", api.GetConnectionHandler(deps))
		v1.Get("/jobs/status", api.JobStatusHandler(deps))

		// Writes are rate limited per client
		v1.Group(func(writes chi.Router) {
			writes.Use(limiter.Middleware)

			writes.Post("/activities", api.LogActivitiesHandler(deps))
			writes.Post("/activities/{activityID}/corrections", api.CorrectActivityHandler(deps))
			writes.Post("/activities/{activityID}/notes", api.AddNoteHandler(deps))
			writes.Post("/actions/{actionID}/undo", api.UndoHandler(deps))

			writes.Post("/sync/{provider}", api.SyncHandler(deps))
			writes.Put("/sync/conditions/{provider}", api.SetConditionsHandler(deps))

			writes.Post("/connections/{provider}/refresh", api.RefreshConnectionHandler(deps))
			writes.Post("/connections/{provider}/break", api.BreakConnectionHandler(deps))
			writes.Post("/connections/{provider}/reconnect", api.ReconnectHandler(deps))

			writes.Post("/jobs/sync", api.TriggerScheduledSyncHandler(deps))
			writes.Delete("/me", api.DeleteMeHandler(deps))
		})
	})
}
