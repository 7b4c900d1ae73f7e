package entities

import (
	"time"
)

// QueueEntry is one active token's projection inside a queue state snapshot
type QueueEntry struct {
	TokenID     string      `json:"token_id"`
	TokenNumber int         `json:"token_number"`
	Status      TokenStatus `json:"status"`
	ETA         *time.Time  `json:"eta,omitempty"`
	PatientID   string      `json:"patient_id"`
	BookingID   string      `json:"booking_id"`
	RecallCount int         `json:"recall_count"`
}

// QueueState is a point-in-time projection of a session's active queue.
// It is derived from the token ledger, never authoritative, and is cached
// with a bounded TTL to answer read queries cheaply.
type QueueState struct {
	SessionID          string        `json:"session_id"`
	Status             SessionStatus `json:"status"`
	CurrentTokenNumber *int          `json:"current_token_number,omitempty"`
	AvgServiceMinutes  float64       `json:"avg_service_minutes"`
	ObservedApplied    bool          `json:"observed_applied"`
	Entries            []QueueEntry  `json:"entries"`
	GeneratedAt        time.Time     `json:"generated_at"`
}
