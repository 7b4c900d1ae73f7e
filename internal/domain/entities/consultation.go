package entities

import (
	"time"
)

// ConsultationStatus represents the status of a consultation record
type ConsultationStatus string

const (
	ConsultationStatusOpen      ConsultationStatus = "open"
	ConsultationStatusCompleted ConsultationStatus = "completed"
)

// Consultation represents the clinical visit record created when a token is
// marked visited. Exactly one consultation exists per token; completed
// consultations feed the observed service-time average.
type Consultation struct {
	ID          string             `json:"id" db:"id"`
	TokenID     string             `json:"token_id" db:"token_id"`
	SessionID   string             `json:"session_id" db:"session_id"`
	ProviderID  string             `json:"provider_id" db:"provider_id"`
	PatientID   string             `json:"patient_id" db:"patient_id"`
	BookingID   *string            `json:"booking_id,omitempty" db:"booking_id"`
	Status      ConsultationStatus `json:"status" db:"status"`
	StartedAt   time.Time          `json:"started_at" db:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// DurationMinutes returns the consultation duration in minutes, or false if
// the consultation has not completed yet.
func (c *Consultation) DurationMinutes() (float64, bool) {
	if c.CompletedAt == nil {
		return 0, false
	}
	return c.CompletedAt.Sub(c.StartedAt).Minutes(), true
}
