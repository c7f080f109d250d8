package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio-cms/internal/config"
	"portfolio-cms/internal/handler"
	"portfolio-cms/internal/metrics"
	"portfolio-cms/internal/middleware"
)

type Handlers struct {
	Health *handler.HealthHandler
	Trash  *handler.TrashHandler
	Entity *handler.EntityHandler
	Audit  *handler.AuditHandler
	Docs   *handler.DocsHandler
}

// New mounts the API. The WebSocket route sits outside the timeout group
// because http.TimeoutHandler cannot be hijacked. ws and recorder may be nil.
func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	handlers Handlers,
	ws http.Handler,
	recorder *metrics.Recorder,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, "/health", "/ready", "/metrics", "/ws")
	requireAdmin := authMiddleware.RequireGroups(cfg.AdminGroups...)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(recorder))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", handlers.Health.Live)
	r.Get("/ready", handlers.Health.Ready)
	if recorder != nil {
		r.Method(http.MethodGet, "/metrics", recorder.Handler())
	}
	r.Get("/openapi.yaml", handlers.Docs.OpenAPI)
	r.Get("/swagger", handlers.Docs.SwaggerUI)

	if ws != nil {
		r.With(authMiddleware.RequireAuthOrQuery, requireAdmin).Method(http.MethodGet, "/ws", ws)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(authMiddleware.RequireAuth, requireAdmin)

		api.Route("/trash", func(trash chi.Router) {
			trash.Get("/", handlers.Trash.List)
			trash.Post("/cleanup", handlers.Trash.Cleanup)
			trash.Get("/sweeps", handlers.Trash.Sweeps)
			trash.Get("/sweeps/{id}", handlers.Trash.Sweep)
			trash.Get("/{id}", handlers.Trash.Get)
			trash.Delete("/{id}", handlers.Trash.Purge)
			trash.Post("/{id}/restore", handlers.Trash.Restore)
		})

		api.Route("/entities", func(entities chi.Router) {
			entities.Get("/", handlers.Entity.Types)
			entities.Get("/{entityType}", handlers.Entity.List)
			entities.Get("/{entityType}/{id}", handlers.Entity.Get)
			entities.Delete("/{entityType}/{id}", handlers.Entity.SoftDelete)
		})

		api.Get("/audit", handlers.Audit.List)
	})

	return r
}
