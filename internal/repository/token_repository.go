package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/folio-labs/auth-service/internal/domain"
	"github.com/folio-labs/auth-service/internal/persistence"
)

// TokenRepository encapsulates auth_tokens persistence.
type TokenRepository interface {
	// Insert stores an active token; ErrTokenConflict if the value exists.
	Insert(ctx context.Context, token *domain.Token) error
	// Resolve joins the token with its account in a single round trip.
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
	Deactivate(ctx context.Context, token string) (int64, error)
	DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error)
}

type tokenRepository struct {
	db persistence.DBTX
}

// NewTokenRepository returns a Postgres-backed implementation bound to db.
func NewTokenRepository(db persistence.DBTX) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Insert(ctx context.Context, token *domain.Token) error {
	const op = "repository.tokens.Insert"
	const query = `
        INSERT INTO auth_tokens (id, account_id, token, created_at, expires_at, is_active)
        VALUES ($1, $2, $3, $4, $5, TRUE)
        ON CONFLICT (token) DO NOTHING
        RETURNING id`

	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	var id string
	err := r.db.QueryRow(ctx, query,
		token.ID,
		token.AccountID,
		token.Value,
		token.CreatedAt,
		token.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenConflict
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	token.IsActive = true
	return nil
}

func (r *tokenRepository) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	const op = "repository.tokens.Resolve"
	const query = `
        SELECT t.account_id, t.expires_at, t.is_active, a.is_active, a.email, a.full_name
        FROM auth_tokens t
        INNER JOIN accounts a ON a.id = t.account_id
        WHERE t.token = $1`

	identity := domain.Identity{Token: token}
	if err := r.db.QueryRow(ctx, query, token).Scan(
		&identity.AccountID,
		&identity.ExpiresAt,
		&identity.TokenActive,
		&identity.AccountActive,
		&identity.Email,
		&identity.FullName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &identity, nil
}

func (r *tokenRepository) Deactivate(ctx context.Context, token string) (int64, error) {
	const query = `
        UPDATE auth_tokens SET is_active = FALSE
        WHERE token = $1 AND is_active`

	cmd, err := r.db.Exec(ctx, query, token)
	if err != nil {
		return 0, fmt.Errorf("repository.tokens.Deactivate: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error) {
	const query = `
        UPDATE auth_tokens SET is_active = FALSE
        WHERE account_id = $1 AND is_active`

	cmd, err := r.db.Exec(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("repository.tokens.DeactivateAllForAccount: %w", err)
	}
	return cmd.RowsAffected(), nil
}
