package domain

import "time"

// Account is a registered principal. PasswordHash holds "<salt>$<digest>"
// and must never be rendered or logged.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountSummary is the externally visible view of an Account.
type AccountSummary struct {
	ID        string
	Email     string
	FullName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary drops credential material from the account.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
