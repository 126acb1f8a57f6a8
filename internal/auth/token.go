package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/folio-labs/auth-service/internal/domain"
	"github.com/folio-labs/auth-service/internal/repository"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

const (
	tokenBytes       = 32
	maxIssueAttempts = 3
	DefaultTokenTTL  = 30 * 24 * time.Hour
)

// GenerateToken returns 256 bits from crypto/rand as 64 lowercase hex characters.
func GenerateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// TokenStore manages the lifecycle of opaque bearer tokens.
type TokenStore struct {
	repo     repository.TokenRepository
	now      func() time.Time
	generate func() (string, error)
}

// TokenStoreOption customizes a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) { s.now = now }
}

// WithGenerator overrides token value generation.
func WithGenerator(generate func() (string, error)) TokenStoreOption {
	return func(s *TokenStore) { s.generate = generate }
}

// NewTokenStore binds a store to repo.
func NewTokenStore(repo repository.TokenRepository, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
		generate: GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithRepository returns a copy of the store bound to repo, typically a
// transaction-scoped repository.
func (s *TokenStore) WithRepository(repo repository.TokenRepository) *TokenStore {
	clone := *s
	clone.repo = repo
	return &clone
}

// Issue persists a fresh active token for accountID that expires after ttl.
// Value collisions are retried with a new value.
func (s *TokenStore) Issue(ctx context.Context, accountID string, ttl time.Duration) (*domain.Token, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, err
		}
		createdAt := s.now()
		token := &domain.Token{
			AccountID: accountID,
			Value:     value,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(ttl),
		}
		err = s.repo.Insert(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, repository.ErrTokenConflict) {
			return nil, err
		}
	}
	return nil, apperrors.NewConflict("token", "could not allocate a unique token")
}

// Resolve returns the identity behind token, or repository.ErrNotFound.
func (s *TokenStore) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	return s.repo.Resolve(ctx, token)
}

// Deactivate marks token inactive. Zero rows means it was already inactive or unknown.
func (s *TokenStore) Deactivate(ctx context.Context, token string) (int64, error) {
	return s.repo.Deactivate(ctx, token)
}

// DeactivateAllActive revokes every active token held by accountID.
func (s *TokenStore) DeactivateAllActive(ctx context.Context, accountID string) (int64, error) {
	return s.repo.DeactivateAllForAccount(ctx, accountID)
}

// IsExpired reports whether expiresAt has been reached.
func (s *TokenStore) IsExpired(expiresAt time.Time) bool {
	return !s.now().Before(expiresAt)
}
