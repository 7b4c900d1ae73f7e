package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// EnsureConsultationInput identifies the token a consultation belongs to
type EnsureConsultationInput struct {
	TokenID    string
	SessionID  string
	ProviderID string
	PatientID  string
	BookingID  *string
	StartedAt  time.Time
}

// ConsultationRepository defines the interface for consultation records.
// EnsureForToken has idempotent "ensure" semantics: at most one consultation
// exists per token no matter how often the visited transition fires.
type ConsultationRepository interface {
	// EnsureForToken creates the consultation for a token if it does not
	// exist yet and returns the record either way
	EnsureForToken(ctx context.Context, input EnsureConsultationInput) (*entities.Consultation, error)

	// CompleteForToken marks the token's consultation completed at the
	// given time. Missing consultations are not an error; completion is a
	// best-effort mirror of the token lifecycle.
	CompleteForToken(ctx context.Context, tokenID string, completedAt time.Time) error

	// ListRecentCompleted retrieves up to limit completed consultations of
	// a session whose start time is at or after since, most recent first.
	// This feeds the observed service-time average.
	ListRecentCompleted(ctx context.Context, sessionID string, since time.Time, limit int) ([]*entities.Consultation, error)
}
