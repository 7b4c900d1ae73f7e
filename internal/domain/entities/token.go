package entities

import (
	"time"
)

// TokenStatus represents the status of a queue token
type TokenStatus string

const (
	TokenStatusWaiting   TokenStatus = "waiting"
	TokenStatusCalled    TokenStatus = "called"
	TokenStatusVisited   TokenStatus = "visited"
	TokenStatusCompleted TokenStatus = "completed"
	TokenStatusSkipped   TokenStatus = "skipped"
	TokenStatusRecalled  TokenStatus = "recalled"
	TokenStatusNoShow    TokenStatus = "no_show"
	TokenStatusCancelled TokenStatus = "cancelled"
)

// IsTerminal reports whether the token can no longer change state
func (s TokenStatus) IsTerminal() bool {
	switch s {
	case TokenStatusCompleted, TokenStatusNoShow, TokenStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the token still occupies a place in the queue.
// Active tokens carry a meaningful ETA.
func (s TokenStatus) IsActive() bool {
	switch s {
	case TokenStatusWaiting, TokenStatusCalled, TokenStatusRecalled, TokenStatusSkipped:
		return true
	}
	return false
}

// ActiveTokenStatuses lists every non-terminal status, in queue terms:
// everything that still needs to be resolved before the session can close.
func ActiveTokenStatuses() []TokenStatus {
	return []TokenStatus{
		TokenStatusWaiting,
		TokenStatusCalled,
		TokenStatusVisited,
		TokenStatusSkipped,
		TokenStatusRecalled,
	}
}

// TokenStatusChange is one entry in a token's audit history
type TokenStatusChange struct {
	Status    TokenStatus `json:"status"`
	ActorID   string      `json:"actor_id"`
	ActorRole string      `json:"actor_role"`
	Notes     string      `json:"notes,omitempty"`
	At        time.Time   `json:"at"`
}

// Token represents one patient's numbered place in a session's queue
type Token struct {
	ID                   string              `json:"id" db:"id"`
	SessionID            string              `json:"session_id" db:"session_id"`
	PatientID            string              `json:"patient_id" db:"patient_id"`
	BookingID            string              `json:"booking_id" db:"booking_id"`
	TokenNumber          int                 `json:"token_number" db:"token_number"`
	Priority             int                 `json:"priority" db:"priority"`
	PriorityReason       string              `json:"priority_reason,omitempty" db:"priority_reason"`
	Status               TokenStatus         `json:"status" db:"status"`
	ETA                  *time.Time          `json:"eta,omitempty" db:"eta"`
	RecallCount          int                 `json:"recall_count" db:"recall_count"`
	DynamicBufferMinutes int                 `json:"dynamic_buffer_minutes" db:"dynamic_buffer_minutes"`
	Notes                string              `json:"notes,omitempty" db:"notes"`
	IssuedAt             time.Time           `json:"issued_at" db:"issued_at"`
	CalledAt             *time.Time          `json:"called_at,omitempty" db:"called_at"`
	VisitedAt            *time.Time          `json:"visited_at,omitempty" db:"visited_at"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	SkippedAt            *time.Time          `json:"skipped_at,omitempty" db:"skipped_at"`
	RecalledAt           *time.Time          `json:"recalled_at,omitempty" db:"recalled_at"`
	NoShowAt             *time.Time          `json:"no_show_at,omitempty" db:"no_show_at"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty" db:"cancelled_at"`
	History              []TokenStatusChange `json:"history" db:"history"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}
