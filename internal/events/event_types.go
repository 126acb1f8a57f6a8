package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventLoggedOut         EventType = "logged_out"
)

// AllTypes lists every event type.
var AllTypes = []EventType{
	EventAccountRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventLoggedOut,
}

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, accountID, email string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Email:     email,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload carries the reason a login was refused.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// Login failure reasons.
const (
	ReasonUnknownEmail    = "unknown_email"
	ReasonWrongPassword   = "wrong_password"
	ReasonInactiveAccount = "inactive_account"
)

// LoggedOutPayload records whether the token was still active at logout.
type LoggedOutPayload struct {
	WasActive bool `json:"was_active"`
}
