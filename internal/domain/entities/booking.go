package entities

import (
	"time"
)

// BookingStatus mirrors the linked token's lifecycle for the patient-facing
// appointment record
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Booking represents the patient-facing appointment record created 1:1 with a
// token at issuance. Billing fields are derived from the verified payment.
type Booking struct {
	ID               string        `json:"id" db:"id"`
	SessionID        string        `json:"session_id" db:"session_id"`
	PatientID        string        `json:"patient_id" db:"patient_id"`
	ProviderID       string        `json:"provider_id" db:"provider_id"`
	TokenNumber      int           `json:"token_number" db:"token_number"`
	ScheduledAt      time.Time     `json:"scheduled_at" db:"scheduled_at"`
	Status           BookingStatus `json:"status" db:"status"`
	PaymentReference string        `json:"payment_reference" db:"payment_reference"`
	GrossAmount      float64       `json:"gross_amount" db:"gross_amount"`
	CommissionRate   float64       `json:"commission_rate" db:"commission_rate"`
	CommissionAmount float64       `json:"commission_amount" db:"commission_amount"`
	NetAmount        float64       `json:"net_amount" db:"net_amount"`
	Currency         string        `json:"currency" db:"currency"`
	ETA              *time.Time    `json:"eta,omitempty" db:"eta"`
	Notes            string        `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// BookingStatusForToken maps a token status to the booking status that should
// be mirrored onto the appointment record, if any.
func BookingStatusForToken(status TokenStatus) (BookingStatus, bool) {
	switch status {
	case TokenStatusCalled, TokenStatusVisited, TokenStatusRecalled:
		return BookingStatusConfirmed, true
	case TokenStatusCompleted:
		return BookingStatusCompleted, true
	case TokenStatusCancelled:
		return BookingStatusCancelled, true
	case TokenStatusNoShow:
		return BookingStatusNoShow, true
	}
	return "", false
}
