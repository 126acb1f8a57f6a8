package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/folio-labs/auth-service/internal/domain"
	"github.com/folio-labs/auth-service/internal/repository"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

// DefaultScheme is the Authorization header scheme accepted when none is configured.
const DefaultScheme = "Token"

const identityKey = "auth_identity"

type identityCtxKey struct{}

// Gate resolves bearer tokens into identities for fiber routes.
type Gate struct {
	tokens *TokenStore
	scheme string
	logger *zap.Logger
}

// NewGate constructs a gate. An empty scheme falls back to DefaultScheme.
func NewGate(tokens *TokenStore, scheme string, logger *zap.Logger) *Gate {
	if scheme == "" {
		scheme = DefaultScheme
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, scheme: scheme, logger: logger}
}

// Required rejects requests without a valid, active, unexpired token.
func (g *Gate) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := g.authenticate(c)
		if err != nil {
			return err
		}
		attach(c, identity)
		return c.Next()
	}
}

// Optional attaches an identity when the request carries a valid token and
// otherwise lets the request through anonymously.
func (g *Gate) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := g.authenticate(c)
		if err != nil {
			if apperrors.IsCode(err, apperrors.CodeStorage) {
				g.logger.Warn("optional auth lookup failed", zap.Error(err))
			}
			return c.Next()
		}
		attach(c, identity)
		return c.Next()
	}
}

func (g *Gate) authenticate(c *fiber.Ctx) (*domain.Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}

	token, ok := ExtractToken(header, g.scheme)
	if !ok {
		return nil, apperrors.NewUnauthenticated("invalid authorization header")
	}

	ctx := c.UserContext()
	identity, err := g.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("invalid token")
		}
		return nil, apperrors.NewStorageError(err)
	}

	if !identity.TokenActive {
		return nil, apperrors.NewUnauthenticated("token has been deactivated")
	}
	if !identity.AccountActive {
		return nil, apperrors.NewForbidden("account is inactive")
	}
	if g.tokens.IsExpired(identity.ExpiresAt) {
		if _, err := g.tokens.Deactivate(ctx, token); err != nil {
			g.logger.Warn("deactivate expired token", zap.String("account_id", identity.AccountID), zap.Error(err))
		}
		return nil, apperrors.NewUnauthenticated("token has expired")
	}
	return identity, nil
}

// ExtractToken parses "<scheme> <token>" with a case-insensitive scheme.
func ExtractToken(header, scheme string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func attach(c *fiber.Ctx, identity *domain.Identity) {
	c.Locals(identityKey, identity)
	c.SetUserContext(context.WithValue(c.UserContext(), identityCtxKey{}, identity))
}

// IdentityFromContext retrieves the identity attached by the gate.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// IdentityFrom retrieves the identity from a request context.
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return identity, ok && identity != nil
}
