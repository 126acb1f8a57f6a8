package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/folio-labs/auth-service/internal/persistence"
)

// Repositories groups repositories bound to the same handle.
type Repositories struct {
	Accounts AccountRepository
	Tokens   TokenRepository
}

// Backend vends repositories over the pool for single statements and over a
// transaction for multi-step units of work.
type Backend interface {
	Accounts() AccountRepository
	Tokens() TokenRepository
	// WithTx runs fn atomically: all of its writes commit together or none do.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type postgresBackend struct {
	pool persistence.Pool
}

// NewPostgresBackend binds repositories to a pgx pool.
func NewPostgresBackend(pool persistence.Pool) Backend {
	return &postgresBackend{pool: pool}
}

func (b *postgresBackend) Accounts() AccountRepository {
	return NewAccountRepository(b.pool)
}

func (b *postgresBackend) Tokens() TokenRepository {
	return NewTokenRepository(b.pool)
}

func (b *postgresBackend) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return persistence.WithTx(ctx, b.pool, func(tx pgx.Tx) error {
		return fn(ctx, Repositories{
			Accounts: NewAccountRepository(tx),
			Tokens:   NewTokenRepository(tx),
		})
	})
}
