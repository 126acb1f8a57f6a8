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

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// LockByID takes a row lock held until the surrounding transaction ends.
	LockByID(ctx context.Context, id string) error
}

type accountRepository struct {
	db persistence.DBTX
}

// NewAccountRepository returns a Postgres-backed implementation bound to db,
// which may be the pool or a transaction.
func NewAccountRepository(db persistence.DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const op = "repository.accounts.Create"
	const query = `
        INSERT INTO accounts (id, email, password_hash, full_name, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FullName,
		account.IsActive,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
        FROM accounts WHERE id = $1`

	return r.scanOne(ctx, "repository.accounts.GetByID", query, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
        FROM accounts WHERE email = $1`

	return r.scanOne(ctx, "repository.accounts.GetByEmail", query, email)
}

func (r *accountRepository) LockByID(ctx context.Context, id string) error {
	const op = "repository.accounts.LockByID"
	const query = `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`

	var locked string
	if err := r.db.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *accountRepository) scanOne(ctx context.Context, op, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FullName,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}
