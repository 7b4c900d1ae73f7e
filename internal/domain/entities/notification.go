package entities

import "time"

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationTokenCalled      NotificationType = "token_called"
	NotificationTokenRecalled    NotificationType = "token_recalled"
	NotificationTokenSkipped     NotificationType = "token_skipped"
	NotificationTokenCompleted   NotificationType = "token_completed"
	NotificationTokenNoShow      NotificationType = "token_no_show"
	NotificationTokenCancelled   NotificationType = "token_cancelled"
)

// RecipientRole identifies who a notification is addressed to
type RecipientRole string

const (
	RecipientPatient  RecipientRole = "patient"
	RecipientProvider RecipientRole = "provider"
)

// NotificationContext carries the display data a delivery channel needs to
// render the message. Delivery mechanics are out of scope for this engine.
type NotificationContext struct {
	SessionID     string     `json:"session_id"`
	TokenID       string     `json:"token_id,omitempty"`
	TokenNumber   int        `json:"token_number,omitempty"`
	BookingID     string     `json:"booking_id,omitempty"`
	PatientID     string     `json:"patient_id,omitempty"`
	ProviderID    string     `json:"provider_id,omitempty"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	ScheduledTime string     `json:"scheduled_time,omitempty"`
	ETA           *time.Time `json:"eta,omitempty"`
}

// NotificationRequest is one typed notification handed to the external
// notification trigger
type NotificationRequest struct {
	Type          NotificationType    `json:"type"`
	RecipientRole RecipientRole       `json:"recipient_role"`
	RecipientID   string              `json:"recipient_id"`
	Context       NotificationContext `json:"context"`
	CreatedAt     time.Time           `json:"created_at"`
}
