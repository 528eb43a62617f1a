package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/handlers"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/middleware"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/session"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	OAuth         *usecase.OAuthService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Channel     session.TokenChannel
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{deps.Config.App.ClientURL}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireAuth := middleware.RequireAuth(deps.Channel, deps.Services.Auth)

	checks := map[string]handlers.ReadinessCheck{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		var authLimits, resetLimits []gin.HandlerFunc
		if deps.RateLimiter != nil {
			authLimits = append(authLimits, deps.RateLimiter.RateLimit(middleware.RateLimitRule{
				Name:       "auth",
				Limit:      deps.Config.RateLimit.AuthMaxAttempts,
				Window:     deps.Config.RateLimit.WindowDuration,
				Identifier: middleware.ClientIPIdentifier(),
			}))
			resetLimits = append(resetLimits, deps.RateLimiter.RateLimit(middleware.RateLimitRule{
				Name:       "password_reset",
				Limit:      deps.Config.RateLimit.ResetMaxAttempts,
				Window:     deps.Config.RateLimit.WindowDuration,
				Identifier: middleware.ClientIPIdentifier(),
			}))
		}

		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(
			deps.Services.Registration,
			deps.Services.Auth,
			deps.Services.OAuth,
			deps.Channel,
			deps.Config.Session.Lifetime,
			deps.Config.App.ClientURL,
			deps.Logger,
		)
		authHandler.RegisterRoutes(authGroup, requireAuth, authLimits...)

		resetGroup := api.Group("/password-reset")
		passwordHandler := handlers.NewPasswordResetHandler(deps.Services.PasswordReset, deps.Logger)
		passwordHandler.RegisterRoutes(resetGroup, resetLimits...)
	}

	return r
}
