package dto

import (
	"time"

	"github.com/folio-labs/auth-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProtectedActionRequest payload for the protected action example.
type ProtectedActionRequest struct {
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// AuthResponse standard response for token-issuing endpoints.
type AuthResponse struct {
	Message   string       `json:"message"`
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// MeResponse wraps the caller's account.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// MessageResponse carries a bare confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewUserResponse renders an account summary.
func NewUserResponse(a domain.AccountSummary) UserResponse {
	resp := UserResponse{
		ID:       a.ID,
		Email:    a.Email,
		FullName: a.FullName,
		IsActive: a.IsActive,
	}
	if !a.CreatedAt.IsZero() {
		created := a.CreatedAt
		resp.CreatedAt = &created
	}
	if !a.UpdatedAt.IsZero() {
		updated := a.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// UserFromIdentity renders the account fields carried by a resolved token.
func UserFromIdentity(identity *domain.Identity) UserResponse {
	return UserResponse{
		ID:       identity.AccountID,
		Email:    identity.Email,
		FullName: identity.FullName,
		IsActive: identity.AccountActive,
	}
}
