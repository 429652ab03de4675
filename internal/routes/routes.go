package routes

import (
	"github.com/dstrelow/gallerygate/internal/auth"
	"github.com/dstrelow/gallerygate/internal/handlers"
	"github.com/dstrelow/gallerygate/internal/middleware"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	gate *auth.Gate,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no session token required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)

	// Protected routes - valid session token required
	router.Group(func(r chi.Router) {
		r.Use(gate.Middleware())

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/session", authHandler.Session)

		// Admin-only inspection routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePrivilege(models.PrivilegeAdmin))

			r.Get("/admin/logs", adminHandler.Logs)
			r.Get("/admin/accounts/{id}/logs", adminHandler.RequesterLogs)
			r.Get("/admin/accounts/{id}/sessions", adminHandler.AccountSessions)
			r.Get("/admin/clients/{id}/bans", adminHandler.ClientBans)
		})
	})
}
