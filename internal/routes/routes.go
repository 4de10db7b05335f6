package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/handlers"
	"github.com/podguard/podguard/internal/middleware"
	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	setupHandler *handlers.SetupHandler,
	feedHandler *handlers.FeedHandler,
	callHandler *handlers.CallHandler,
	adminHandler *handlers.AdminHandler,
	keyHandler *handlers.KeyHandler,
	apiKeyAuthn auth.APIKeyAuthenticator,
	ipConfig *pkghttp.IPConfig,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	feedRateLimit := middleware.DefaultFeedRateLimit()

	// Public routes. The volumetric IP limiter caps raw request rates; the
	// abuse engine inside each service handles failed-credential bans.
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/setup/validate", setupHandler.Validate)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/calls/{roomID}/join", callHandler.Join)
	router.With(middleware.RateLimitByIP(feedRateLimit)).Get("/feeds/{token}", feedHandler.Get)

	// API routes - API key required
	router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAPIKey(apiKeyAuthn, ipConfig))

		r.Get("/keys/current", keyHandler.Current)

		// Operator surface for ban inspection and removal
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeAbuseAdmin))
			r.Get("/admin/bans", adminHandler.ListBans)
			r.Delete("/admin/bans", adminHandler.Unban)
		})
	})
}
