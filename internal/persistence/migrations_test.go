package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

type fakeMigrator struct {
	upCalls   int
	downTo    []int64
	upErr     error
	downErr   error
	upResults []*goose.MigrationResult
}

func (f *fakeMigrator) Up(context.Context) ([]*goose.MigrationResult, error) {
	f.upCalls++
	return f.upResults, f.upErr
}

func (f *fakeMigrator) DownTo(_ context.Context, version int64) ([]*goose.MigrationResult, error) {
	f.downTo = append(f.downTo, version)
	return nil, f.downErr
}

func withMigrator(t *testing.T, m migrator, err error) {
	t.Helper()
	orig := newMigrator
	newMigrator = func(*sql.DB) (migrator, error) { return m, err }
	t.Cleanup(func() { newMigrator = orig })
}

func TestSchemaManager_InitializeTwice(t *testing.T) {
	fm := &fakeMigrator{upResults: []*goose.MigrationResult{{Source: &goose.Source{Version: 1}, Direction: "up"}}}
	withMigrator(t, fm, nil)

	m := &SchemaManager{logger: zap.NewNop()}
	require.NoError(t, m.Initialize(context.Background()))

	fm.upResults = nil
	require.NoError(t, m.Initialize(context.Background()))
	assert.Equal(t, 2, fm.upCalls)
}

func TestSchemaManager_InitializeErrorIsStorageError(t *testing.T) {
	withMigrator(t, &fakeMigrator{upErr: errors.New("permission denied for schema public")}, nil)

	m := &SchemaManager{logger: zap.NewNop()}
	err := m.Initialize(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorage))
	assert.Equal(t, "storage failure", apperrors.ToDomainError(err).Message)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSchemaManager_MigratorConstructionError(t *testing.T) {
	withMigrator(t, nil, errors.New("bad fs"))

	m := &SchemaManager{logger: zap.NewNop()}
	assert.True(t, apperrors.IsCode(m.Initialize(context.Background()), apperrors.CodeStorage))
	assert.True(t, apperrors.IsCode(m.Teardown(context.Background()), apperrors.CodeStorage))
}

func TestSchemaManager_TeardownMigratesToZero(t *testing.T) {
	fm := &fakeMigrator{}
	withMigrator(t, fm, nil)

	m := &SchemaManager{logger: zap.NewNop()}
	require.NoError(t, m.Teardown(context.Background()))
	assert.Equal(t, []int64{0}, fm.downTo)

	fm.downErr = errors.New("lock timeout")
	assert.True(t, apperrors.IsCode(m.Teardown(context.Background()), apperrors.CodeStorage))
}

func TestEmbeddedMigration_Shape(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/00001_create_auth_tables.sql")
	require.NoError(t, err)
	sqlText := string(raw)

	up, down, ok := strings.Cut(sqlText, "-- +goose Down")
	require.True(t, ok)
	assert.Contains(t, up, "-- +goose Up")

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS accounts",
		"CREATE TABLE IF NOT EXISTS auth_tokens",
		"idx_accounts_email ON accounts (email)",
		"idx_auth_tokens_token ON auth_tokens (token)",
		"idx_auth_tokens_account_id ON auth_tokens (account_id)",
		"ON DELETE CASCADE",
		"CHECK (expires_at > created_at)",
		"WHERE is_active",
	} {
		assert.Contains(t, up, stmt)
	}
	assert.Contains(t, down, "DROP TABLE IF EXISTS auth_tokens")
	assert.Contains(t, down, "DROP TABLE IF EXISTS accounts")
	assert.Less(t, strings.Index(down, "auth_tokens"), strings.Index(down, "accounts;"))
}

func TestNewMigrator_LoadsEmbeddedSources(t *testing.T) {
	// goose validates sources without touching the database
	db, err := sql.Open("pgx", "postgres://invalid")
	require.NoError(t, err)
	defer db.Close()

	mg, err := newMigrator(db)
	require.NoError(t, err)
	require.NotNil(t, mg)

	p, ok := mg.(*goose.Provider)
	require.True(t, ok)
	sources := p.ListSources()
	require.Len(t, sources, 1)
	assert.Equal(t, int64(1), sources[0].Version)
}
