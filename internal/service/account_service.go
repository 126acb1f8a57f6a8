package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/folio-labs/auth-service/internal/auth"
	"github.com/folio-labs/auth-service/internal/config"
	"github.com/folio-labs/auth-service/internal/domain"
	"github.com/folio-labs/auth-service/internal/events"
	"github.com/folio-labs/auth-service/internal/repository"
	apperrors "github.com/folio-labs/auth-service/pkg/util"
)

const invalidCredentials = "invalid email or password"

// RegisterInput carries the registration fields as received.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// AuthResult is returned by flows that issue a token.
type AuthResult struct {
	Account   domain.AccountSummary
	Token     string
	ExpiresAt time.Time
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	Backend    repository.Backend
	Tokens     *auth.TokenStore
	Codec      *auth.Codec
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AccountService coordinates registration, login, logout and who-am-I.
type AccountService struct {
	backend    repository.Backend
	tokens     *auth.TokenStore
	codec      *auth.Codec
	dispatcher events.Dispatcher
	logger     *zap.Logger
	tokenTTL   time.Duration
	dummyHash  string
}

// NewAccountService builds the service. A nil token store is bound to the
// backend's token repository.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) (*AccountService, error) {
	if deps.Backend == nil {
		return nil, errors.New("account service: backend is required")
	}
	codec := deps.Codec
	if codec == nil {
		codec = auth.NewCodec(auth.CodecParams{
			Time:      cfg.Argon2Time,
			MemoryKiB: cfg.Argon2MemoryKiB,
			Threads:   cfg.Argon2Threads,
		})
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenStore(deps.Backend.Tokens())
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	// Verified against when the email is unknown so that path costs the same
	// as a wrong password.
	dummyHash, err := codec.Hash("timing-equalizer-Passw0rd")
	if err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}

	return &AccountService{
		backend:    deps.Backend,
		tokens:     tokens,
		codec:      codec,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		tokenTTL:   ttl,
		dummyHash:  dummyHash,
	}, nil
}

// Register creates an active account and issues its first token atomically.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := auth.NormalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	switch {
	case email == "":
		return nil, apperrors.NewValidationError("email", "email is required", nil)
	case in.Password == "":
		return nil, apperrors.NewValidationError("password", "password is required", nil)
	case fullName == "":
		return nil, apperrors.NewValidationError("full_name", "full name is required", nil)
	}
	if !auth.ValidateEmailSyntax(email) {
		return nil, apperrors.NewValidationError("email", "invalid email format", nil)
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		details := map[string]any{}
		var pwErr *auth.PasswordError
		if errors.As(err, &pwErr) {
			details["rule"] = pwErr.Rule
		}
		return nil, apperrors.NewValidationError("password", err.Error(), details)
	}

	if _, err := s.backend.Accounts().GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email", "email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageFailure("service.accounts.Register", err)
	}

	hash, err := s.codec.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		IsActive:     true,
	}
	var token *domain.Token
	err = s.backend.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				return apperrors.NewConflict("email", "email already registered")
			}
			return err
		}
		issued, err := s.tokens.WithRepository(repos.Tokens).Issue(ctx, account.ID, s.tokenTTL)
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		return nil, storageFailure("service.accounts.Register", err)
	}

	s.publish(ctx, events.NewEvent(events.EventAccountRegistered, account.ID, account.Email, nil))
	return &AuthResult{Account: account.Summary(), Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Login verifies credentials, revokes the account's active tokens and issues
// a new one.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = auth.NormalizeEmail(email)
	switch {
	case email == "":
		return nil, apperrors.NewValidationError("email", "email is required", nil)
	case password == "":
		return nil, apperrors.NewValidationError("password", "password is required", nil)
	}

	account, err := s.backend.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.codec.Verify(password, s.dummyHash)
			s.loginFailed(ctx, "", email, events.ReasonUnknownEmail)
			return nil, apperrors.NewUnauthenticated(invalidCredentials)
		}
		return nil, storageFailure("service.accounts.Login", err)
	}
	if !account.IsActive {
		s.loginFailed(ctx, account.ID, email, events.ReasonInactiveAccount)
		return nil, apperrors.NewForbidden("account is inactive")
	}
	if !s.codec.Verify(password, account.PasswordHash) {
		s.loginFailed(ctx, account.ID, email, events.ReasonWrongPassword)
		return nil, apperrors.NewUnauthenticated(invalidCredentials)
	}

	var token *domain.Token
	err = s.backend.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Accounts.LockByID(ctx, account.ID); err != nil {
			return err
		}
		tokens := s.tokens.WithRepository(repos.Tokens)
		if _, err := tokens.DeactivateAllActive(ctx, account.ID); err != nil {
			return err
		}
		issued, err := tokens.Issue(ctx, account.ID, s.tokenTTL)
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		return nil, storageFailure("service.accounts.Login", err)
	}

	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, account.ID, account.Email, nil))
	return &AuthResult{Account: account.Summary(), Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Logout deactivates token. Logging out an already inactive token succeeds.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.NewUnauthenticated("authentication required")
	}

	identity, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthenticated("invalid token")
		}
		return storageFailure("service.accounts.Logout", err)
	}

	if !identity.TokenActive {
		s.publish(ctx, events.NewEvent(events.EventLoggedOut, identity.AccountID, "", events.LoggedOutPayload{WasActive: false}))
		return nil
	}

	if _, err := s.tokens.Deactivate(ctx, token); err != nil {
		return storageFailure("service.accounts.Logout", err)
	}
	if s.tokens.IsExpired(identity.ExpiresAt) {
		return apperrors.NewUnauthenticated("token has expired")
	}

	s.publish(ctx, events.NewEvent(events.EventLoggedOut, identity.AccountID, "", events.LoggedOutPayload{WasActive: true}))
	return nil
}

// WhoAmI reloads the account behind an authenticated identity.
func (s *AccountService) WhoAmI(ctx context.Context, identity *domain.Identity) (*domain.AccountSummary, error) {
	if identity == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	account, err := s.backend.Accounts().GetByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("account not found")
		}
		return nil, storageFailure("service.accounts.WhoAmI", err)
	}
	summary := account.Summary()
	return &summary, nil
}

func (s *AccountService) loginFailed(ctx context.Context, accountID, email, reason string) {
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, accountID, email, events.LoginFailedPayload{Reason: reason}))
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// storageFailure passes DomainErrors through and hides anything else behind
// a StorageError.
func storageFailure(op string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewStorageError(fmt.Errorf("%s: %w", op, err))
}
