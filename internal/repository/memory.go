package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/folio-labs/auth-service/internal/domain"
)

var errActiveTokenExists = errors.New("account already holds an active token")

type memoryState struct {
	accounts map[string]domain.Account
	byEmail  map[string]string
	tokens   map[string]domain.Token
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		accounts: make(map[string]domain.Account, len(s.accounts)),
		byEmail:  make(map[string]string, len(s.byEmail)),
		tokens:   make(map[string]domain.Token, len(s.tokens)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

// MemoryBackend keeps accounts and tokens in process memory with the same
// constraints as the SQL schema. Transactions are serialized and restored
// from a snapshot on failure. Used when no database is configured.
type MemoryBackend struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{state: &memoryState{
		accounts: map[string]domain.Account{},
		byEmail:  map[string]string{},
		tokens:   map[string]domain.Token{},
	}}
}

func (b *MemoryBackend) Accounts() AccountRepository {
	return memoryAccounts{b: b}
}

func (b *MemoryBackend) Tokens() TokenRepository {
	return memoryTokens{b: b}
}

func (b *MemoryBackend) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}

	snapshot := b.state.clone()
	defer func() {
		if p := recover(); p != nil {
			b.state = snapshot
			panic(p)
		}
		if err != nil {
			b.state = snapshot
		}
	}()

	err = fn(ctx, Repositories{
		Accounts: memoryAccounts{b: b, inTx: true},
		Tokens:   memoryTokens{b: b, inTx: true},
	})
	return err
}

// run executes fn against the current state, taking the lock unless the
// caller already holds it through WithTx.
func (b *MemoryBackend) run(inTx bool, fn func(s *memoryState) error) error {
	if !inTx {
		b.mu.Lock()
		defer b.mu.Unlock()
	}
	return fn(b.state)
}

type memoryAccounts struct {
	b    *MemoryBackend
	inTx bool
}

func (r memoryAccounts) Create(ctx context.Context, account *domain.Account) error {
	return r.b.run(r.inTx, func(s *memoryState) error {
		if _, taken := s.byEmail[account.Email]; taken {
			return ErrEmailTaken
		}
		if account.ID == "" {
			account.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		account.CreatedAt = now
		account.UpdatedAt = now
		s.accounts[account.ID] = *account
		s.byEmail[account.Email] = account.ID
		return nil
	})
}

func (r memoryAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var out *domain.Account
	err := r.b.run(r.inTx, func(s *memoryState) error {
		account, ok := s.accounts[id]
		if !ok {
			return ErrNotFound
		}
		out = &account
		return nil
	})
	return out, err
}

func (r memoryAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var out *domain.Account
	err := r.b.run(r.inTx, func(s *memoryState) error {
		id, ok := s.byEmail[email]
		if !ok {
			return ErrNotFound
		}
		account := s.accounts[id]
		out = &account
		return nil
	})
	return out, err
}

func (r memoryAccounts) LockByID(ctx context.Context, id string) error {
	return r.b.run(r.inTx, func(s *memoryState) error {
		if _, ok := s.accounts[id]; !ok {
			return ErrNotFound
		}
		return nil
	})
}

type memoryTokens struct {
	b    *MemoryBackend
	inTx bool
}

func (r memoryTokens) Insert(ctx context.Context, token *domain.Token) error {
	return r.b.run(r.inTx, func(s *memoryState) error {
		if _, exists := s.tokens[token.Value]; exists {
			return ErrTokenConflict
		}
		if _, ok := s.accounts[token.AccountID]; !ok {
			return ErrNotFound
		}
		for _, t := range s.tokens {
			if t.AccountID == token.AccountID && t.IsActive {
				return errActiveTokenExists
			}
		}
		if token.ID == "" {
			token.ID = uuid.NewString()
		}
		token.IsActive = true
		s.tokens[token.Value] = *token
		return nil
	})
}

func (r memoryTokens) Resolve(ctx context.Context, value string) (*domain.Identity, error) {
	var out *domain.Identity
	err := r.b.run(r.inTx, func(s *memoryState) error {
		token, ok := s.tokens[value]
		if !ok {
			return ErrNotFound
		}
		account, ok := s.accounts[token.AccountID]
		if !ok {
			return ErrNotFound
		}
		out = &domain.Identity{
			AccountID:     account.ID,
			Email:         account.Email,
			FullName:      account.FullName,
			AccountActive: account.IsActive,
			Token:         token.Value,
			TokenActive:   token.IsActive,
			ExpiresAt:     token.ExpiresAt,
		}
		return nil
	})
	return out, err
}

func (r memoryTokens) Deactivate(ctx context.Context, value string) (int64, error) {
	var affected int64
	err := r.b.run(r.inTx, func(s *memoryState) error {
		token, ok := s.tokens[value]
		if !ok || !token.IsActive {
			return nil
		}
		token.IsActive = false
		s.tokens[value] = token
		affected = 1
		return nil
	})
	return affected, err
}

func (r memoryTokens) DeactivateAllForAccount(ctx context.Context, accountID string) (int64, error) {
	var affected int64
	err := r.b.run(r.inTx, func(s *memoryState) error {
		for value, token := range s.tokens {
			if token.AccountID == accountID && token.IsActive {
				token.IsActive = false
				s.tokens[value] = token
				affected++
			}
		}
		return nil
	})
	return affected, err
}
