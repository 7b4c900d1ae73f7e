package entities

import (
	"time"
)

// SessionStatus represents the lifecycle status of a clinic session
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether the session can no longer change state
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// Session represents one bounded time block of a provider at a location.
// Tokens are issued against a session until its capacity is exhausted.
type Session struct {
	ID                 string        `json:"id" db:"id"`
	ProviderID         string        `json:"provider_id" db:"provider_id"`
	LocationID         string        `json:"location_id" db:"location_id"`
	StartTime          time.Time     `json:"start_time" db:"start_time"`
	EndTime            time.Time     `json:"end_time" db:"end_time"`
	AvgServiceMinutes  int           `json:"avg_service_minutes" db:"avg_service_minutes"`
	BufferMinutes      int           `json:"buffer_minutes" db:"buffer_minutes"`
	Capacity           int           `json:"capacity" db:"capacity"`
	ConsultationFee    float64       `json:"consultation_fee" db:"consultation_fee"`
	Currency           string        `json:"currency" db:"currency"`
	Status             SessionStatus `json:"status" db:"status"`
	CurrentTokenNumber *int          `json:"current_token_number,omitempty" db:"current_token_number"`
	NextTokenNumber    int           `json:"next_token_number" db:"next_token_number"`
	Paused             bool          `json:"paused" db:"paused"`
	PauseReason        string        `json:"pause_reason,omitempty" db:"pause_reason"`
	ResumeAt           *time.Time    `json:"resume_at,omitempty" db:"resume_at"`
	IssuedCount        int           `json:"issued_count" db:"issued_count"`
	CompletedCount     int           `json:"completed_count" db:"completed_count"`
	SkippedCount       int           `json:"skipped_count" db:"skipped_count"`
	NoShowCount        int           `json:"no_show_count" db:"no_show_count"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// HasAvgServiceTime reports whether the provider has configured an average
// service time. Tokens cannot be issued and the session cannot go live
// without it.
func (s *Session) HasAvgServiceTime() bool {
	return s.AvgServiceMinutes > 0
}

// AcceptsBookings reports whether new tokens may be issued against the session
func (s *Session) AcceptsBookings() bool {
	return !s.Status.IsTerminal()
}
