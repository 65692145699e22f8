package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/iterview/session-service/internal/api/http/handlers"
	"github.com/iterview/session-service/internal/auth"
	"github.com/iterview/session-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics

	// RequiredAuthority gates the session routes; every signed-up member holds it.
	RequiredAuthority string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/reissue", cfg.Auth.Reissue)

	guards := []fiber.Handler{cfg.AuthMiddleware.Handle}
	if cfg.RequiredAuthority != "" {
		guards = append(guards, auth.RequireAuthority(cfg.RequiredAuthority))
	}
	protected := authGroup.Group("", guards...)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/me", cfg.Auth.Me)
}
