package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/folio-labs/auth-service/internal/domain"
	"github.com/folio-labs/auth-service/internal/repository"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

type gateFixture struct {
	app     *fiber.App
	backend *repository.MemoryBackend
	store   *TokenStore
	clock   *fakeClock
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	backend := repository.NewMemoryBackend()
	clock := newClock()
	store := NewTokenStore(backend.Tokens(), WithClock(clock.Now))
	gate := NewGate(store, "", zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code, "message": domainErr.Message})
		},
	})
	app.Get("/required", gate.Required(), func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		fromCtx, ok2 := IdentityFrom(c.UserContext())
		if !ok || !ok2 || identity != fromCtx {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "identity not attached"})
		}
		return c.JSON(fiber.Map{"email": identity.Email})
	})
	app.Get("/optional", gate.Optional(), func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return c.JSON(fiber.Map{"authenticated": false})
		}
		return c.JSON(fiber.Map{"authenticated": true, "email": identity.Email})
	})

	return &gateFixture{app: app, backend: backend, store: store, clock: clock}
}

func (f *gateFixture) issue(t *testing.T, email string, active bool) *domain.Token {
	t.Helper()
	account := seedAccount(t, f.backend, email, active)
	token, err := f.store.Issue(context.Background(), account.ID, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *gateFixture) do(t *testing.T, path, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestGate_RequiredAcceptsValidToken(t *testing.T) {
	f := newGateFixture(t)
	token := f.issue(t, "ada@example.com", true)

	for _, scheme := range []string{"Token", "token", "TOKEN"} {
		status, body := f.do(t, "/required", scheme+" "+token.Value)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ada@example.com", body["email"])
	}
}

func TestGate_RequiredRejections(t *testing.T) {
	f := newGateFixture(t)
	valid := f.issue(t, "ada@example.com", true)

	revoked := f.issue(t, "revoked@example.com", true)
	_, err := f.store.Deactivate(context.Background(), revoked.Value)
	require.NoError(t, err)

	inactive := f.issue(t, "inactive@example.com", false)

	cases := []struct {
		name    string
		header  string
		status  int
		code    string
		message string
	}{
		{"missing header", "", http.StatusUnauthorized, apperrors.CodeAuthentication, "authentication required"},
		{"wrong scheme", "Bearer " + valid.Value, http.StatusUnauthorized, apperrors.CodeAuthentication, "invalid authorization header"},
		{"scheme only", "Token", http.StatusUnauthorized, apperrors.CodeAuthentication, "invalid authorization header"},
		{"empty token", "Token    ", http.StatusUnauthorized, apperrors.CodeAuthentication, "invalid authorization header"},
		{"unknown token", "Token deadbeef", http.StatusUnauthorized, apperrors.CodeAuthentication, "invalid token"},
		{"deactivated", "Token " + revoked.Value, http.StatusUnauthorized, apperrors.CodeAuthentication, "token has been deactivated"},
		{"inactive account", "Token " + inactive.Value, http.StatusForbidden, apperrors.CodeAuthorization, "account is inactive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, "/required", tc.header)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestGate_RequiredExpiredTokenIsDeactivated(t *testing.T) {
	f := newGateFixture(t)
	token := f.issue(t, "ada@example.com", true)
	f.clock.Advance(time.Hour)

	status, body := f.do(t, "/required", "Token "+token.Value)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token has expired", body["message"])

	identity, err := f.store.Resolve(context.Background(), token.Value)
	require.NoError(t, err)
	assert.False(t, identity.TokenActive)

	status, body = f.do(t, "/required", "Token "+token.Value)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token has been deactivated", body["message"])
}

func TestGate_Optional(t *testing.T) {
	f := newGateFixture(t)
	token := f.issue(t, "ada@example.com", true)

	status, body := f.do(t, "/optional", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	status, body = f.do(t, "/optional", "Token nonsense")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	status, body = f.do(t, "/optional", "Token "+token.Value)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "ada@example.com", body["email"])

	f.clock.Advance(2 * time.Hour)
	status, body = f.do(t, "/optional", "Token "+token.Value)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["authenticated"])

	identity, err := f.store.Resolve(context.Background(), token.Value)
	require.NoError(t, err)
	assert.False(t, identity.TokenActive)
}

type failingTokens struct {
	repository.TokenRepository
}

func (failingTokens) Resolve(context.Context, string) (*domain.Identity, error) {
	return nil, errors.New("connection refused")
}

func TestGate_StorageFailure(t *testing.T) {
	gate := NewGate(NewTokenStore(failingTokens{}), "Token", nil)

	var captured error
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		captured = err
		return c.SendStatus(http.StatusInternalServerError)
	}})
	app.Get("/required", gate.Required(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/optional", gate.Optional(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Token abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, apperrors.IsCode(captured, apperrors.CodeStorage))

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Token abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestExtractToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"plain":          {"Token abc", "abc", true},
		"lowercase":      {"token abc", "abc", true},
		"padded":         {"  Token   abc  ", "abc", true},
		"bearer":         {"Bearer abc", "", false},
		"no token":       {"Token", "", false},
		"embedded space": {"Token abc def", "", false},
		"empty":          {"", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := ExtractToken(tc.header, "Token")
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}
