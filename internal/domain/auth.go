package domain

import "time"

// Token is a persisted opaque bearer token.
type Token struct {
	ID        string
	AccountID string
	Value     string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsActive  bool
}

// Identity is what a bearer token resolves to: the owning account joined
// with the token's own state.
type Identity struct {
	AccountID     string
	Email         string
	FullName      string
	AccountActive bool
	Token         string
	TokenActive   bool
	ExpiresAt     time.Time
}
