package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/folio-labs/auth-service/internal/config"
	"github.com/folio-labs/auth-service/internal/observability"
	"github.com/folio-labs/auth-service/internal/persistence"
)

func main() {
	reset := flag.Bool("reset", false, "drop the auth tables before recreating them")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *reset); err != nil {
		logger.Error("initdb failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("schema ready", zap.Bool("reset", *reset))
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, reset bool) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	schema := persistence.NewSchemaManager(pg.PoolHandle(), logger)
	if reset {
		logger.Warn("dropping auth tables")
		if err := schema.Teardown(ctx); err != nil {
			return err
		}
	}
	return schema.Initialize(ctx)
}
