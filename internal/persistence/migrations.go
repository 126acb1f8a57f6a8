package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
	DownTo(ctx context.Context, version int64) ([]*goose.MigrationResult, error)
}

// newMigrator is a seam for tests.
var newMigrator = func(db *sql.DB) (migrator, error) {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, db, fsys)
}

// SchemaManager owns the lifecycle of the accounts and auth_tokens tables.
type SchemaManager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaManager bridges the pgx pool to database/sql for goose.
func NewSchemaManager(pool *pgxpool.Pool, logger *zap.Logger) *SchemaManager {
	return &SchemaManager{db: stdlib.OpenDBFromPool(pool), logger: logger}
}

// Initialize creates both tables and their indexes if absent. Safe to rerun.
func (m *SchemaManager) Initialize(ctx context.Context) error {
	mg, err := newMigrator(m.db)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("schema migrator: %w", err))
	}

	results, err := mg.Up(ctx)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("initialize schema: %w", err))
	}
	m.logResults("schema initialized", results)
	return nil
}

// Teardown drops both tables. Destructive; reset tooling only.
func (m *SchemaManager) Teardown(ctx context.Context) error {
	mg, err := newMigrator(m.db)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("schema migrator: %w", err))
	}

	results, err := mg.DownTo(ctx, 0)
	if err != nil {
		return apperrors.NewStorageError(fmt.Errorf("teardown schema: %w", err))
	}
	m.logResults("schema dropped", results)
	return nil
}

func (m *SchemaManager) logResults(msg string, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		m.logger.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("direction", r.Direction),
			zap.Duration("duration", r.Duration))
	}
	m.logger.Info(msg, zap.Int("applied", len(results)))
}
