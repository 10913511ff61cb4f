package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/blacklist-api/internal/auth"
	"github.com/ignite/blacklist-api/internal/config"
)

// SetupRoutes configures all API routes. The bearer guard is applied to the
// blacklist group only; health routes never see it.
func SetupRoutes(cfg config.ServerConfig, bl *BlacklistHandler, health *HealthChecker, guard *auth.BearerGuard) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Route(cfg.HealthPrefix, func(r chi.Router) {
		r.Get("/", health.HandleLiveness)
		r.Get("/ready", health.HandleReadiness)
	})

	r.Route(cfg.BlacklistPrefix, func(r chi.Router) {
		r.Use(guard.Require)
		r.Post("/", bl.HandleCreate)
		r.Get("/{email}", bl.HandleCheck)
	})

	return r
}
