package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/infra/database"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
	"github.com/eaeoz/shortcuts-app/internal/infra/mailer"
	redisinfra "github.com/eaeoz/shortcuts-app/internal/infra/redis"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	memoryrepo "github.com/eaeoz/shortcuts-app/internal/repository/memory"
	postgresrepo "github.com/eaeoz/shortcuts-app/internal/repository/postgres"
	redisrepo "github.com/eaeoz/shortcuts-app/internal/repository/redis"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/middleware"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/routes"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/session"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

// Application owns the wired object graph and the HTTP server lifecycle.
type Application struct {
	cfg          *config.AppConfig
	engine       *gin.Engine
	logger       *zap.Logger
	pool         *pgxpool.Pool
	redis        *redisinfra.Client
	pendingCodes *memoryrepo.PendingCodeStore
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	sessions, err := security.NewSessionIssuer(cfg.Session.Secret, cfg.App.Name, cfg.Session.Lifetime)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init session issuer: %w", err)
	}

	app := &Application{
		cfg:    cfg,
		logger: log,
		pool:   pool,
	}

	// The pending-code store and the rate limiter back onto Redis when it
	// is configured, so codes survive restarts and limits are shared
	// across replicas. Without Redis a single-process in-memory store
	// serves both codes and nothing enforces limits.
	var pendingCodes port.PendingCodeStore
	var rateLimiter *middleware.RateLimiter
	var cache routes.CacheChecker

	if cfg.Redis.Enabled() {
		redisClient, err := redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		app.redis = redisClient
		cache = redisClient

		pendingCodes = redisrepo.NewPendingCodeStore(redisClient.Client(), cfg.Redis.KeyPrefix)

		rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.KeyPrefix + ":rate-limit",
			TTL:       cfg.RateLimit.WindowDuration * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else {
		log.Info("redis not configured, using in-memory pending-code store")
		memStore := memoryrepo.NewPendingCodeStore()
		app.pendingCodes = memStore
		pendingCodes = memStore
	}

	users := postgresrepo.NewUserRepository(pool)

	var sender port.EmailSender
	if cfg.SMTP.Enabled() {
		smtpSender, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			app.closeResources()
			return nil, fmt.Errorf("init smtp sender: %w", err)
		}
		sender = smtpSender
	} else {
		log.Warn("smtp not configured, verification codes are logged instead of emailed")
		sender = mailer.NewLogSender(log)
	}
	codeMailer := mailer.NewCodeMailer(sender, log)

	registrationService := usecase.NewRegistrationService(users, pendingCodes, sessions, codeMailer, cfg.Verification, log)
	resetService := usecase.NewPasswordResetService(users, pendingCodes, codeMailer, cfg.Verification, log)
	authService := usecase.NewAuthService(users, sessions, log)

	var oauthService *usecase.OAuthService
	if cfg.Google.Enabled() {
		oauthService = usecase.NewOAuthService(users, pendingCodes, sessions, cfg.Google, log)
	} else {
		log.Info("google oauth not configured, provider sign-in disabled")
	}

	channel := session.NewCompositeChannel(
		session.NewCookieChannel(cfg.Session.CookieName, cfg.App.CrossSite()),
		session.NewBearerChannel(),
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	app.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Channel:     channel,
		Metrics:     metrics,
		Database:    pool,
		Cache:       cache,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: resetService,
			OAuth:         oauthService,
		},
	})

	return app, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.closeResources()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting shortcuts API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func (a *Application) closeResources() {
	if a.pendingCodes != nil {
		a.pendingCodes.Close()
		a.pendingCodes = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
