package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/folio-labs/auth-service/internal/api/http/handlers"
	"github.com/folio-labs/auth-service/internal/auth"
	"github.com/folio-labs/auth-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Demo    *handlers.DemoHandler
	Metrics *handlers.MetricsHandler
	Gate    *auth.Gate
	Logger  *zap.Logger

	// Limiter throttles /login and /register; nil disables throttling.
	Limiter        *ratelimit.Limiter
	LoginPolicy    ratelimit.Policy
	RegisterPolicy ratelimit.Policy
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Snapshot)
	}

	app.Post("/register", rateLimitMiddleware(cfg.Limiter, "register", cfg.RegisterPolicy, logger), cfg.Auth.Register)
	app.Post("/login", rateLimitMiddleware(cfg.Limiter, "login", cfg.LoginPolicy, logger), cfg.Auth.Login)
	app.Post("/logout", cfg.Auth.Logout)

	required := cfg.Gate.Required()
	app.Get("/me", required, cfg.Auth.Me)
	app.Get("/protected", required, cfg.Demo.Protected)
	app.Post("/protected-action", required, cfg.Demo.ProtectedAction)
	app.Get("/optional", cfg.Gate.Optional(), cfg.Demo.Optional)
}
