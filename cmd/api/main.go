package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/folio-labs/auth-service/internal/api/http"
	"github.com/folio-labs/auth-service/internal/api/http/handlers"
	"github.com/folio-labs/auth-service/internal/auth"
	"github.com/folio-labs/auth-service/internal/config"
	"github.com/folio-labs/auth-service/internal/events"
	"github.com/folio-labs/auth-service/internal/observability"
	"github.com/folio-labs/auth-service/internal/persistence"
	"github.com/folio-labs/auth-service/internal/ratelimit"
	"github.com/folio-labs/auth-service/internal/repository"
	"github.com/folio-labs/auth-service/internal/service"
	"github.com/folio-labs/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		backend      repository.Backend
		dependencies []handlers.Dependency
	)
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory storage")
		backend = repository.NewMemoryBackend()
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.InitSchema {
			if err := persistence.NewSchemaManager(pg.PoolHandle(), logger).Initialize(ctx); err != nil {
				logger.Fatal("failed to initialize schema", zap.Error(err))
			}
		}
		backend = repository.NewPostgresBackend(pg.PoolHandle())
		dependencies = append(dependencies, handlers.Dependency{Name: "postgres", Pinger: pg})
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var limiter *ratelimit.Limiter
	if redis.Enabled() {
		limiter = ratelimit.NewLimiter(redis.Client, cfg.App.Name+":rl")
		dependencies = append(dependencies, handlers.Dependency{Name: "redis", Pinger: redis, Optional: true})
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	tokens := auth.NewTokenStore(backend.Tokens())
	accounts, err := service.NewAccountService(cfg.Auth, service.AccountDependencies{
		Backend:    backend,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to build account service", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies...),
		Auth:           handlers.NewAuthHandler(accounts, cfg.Auth.Scheme),
		Demo:           handlers.NewDemoHandler(),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Gate:           auth.NewGate(tokens, cfg.Auth.Scheme, logger),
		Logger:         logger,
		Limiter:        limiter,
		LoginPolicy:    ratelimit.Policy{Limit: cfg.RateLimit.LoginLimit, Window: cfg.RateLimit.LoginWindow()},
		RegisterPolicy: ratelimit.Policy{Limit: cfg.RateLimit.RegisterLimit, Window: cfg.RateLimit.RegisterWindow()},
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
