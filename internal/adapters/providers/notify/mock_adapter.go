package notify

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

// MockAdapter implements NotificationTrigger for environments without a
// delivery pipeline; requests are logged and dropped
type MockAdapter struct{}

// NewMockAdapter creates a new mock notification adapter
func NewMockAdapter() providers.NotificationTrigger {
	return &MockAdapter{}
}

// Trigger logs the notification instead of delivering it
func (a *MockAdapter) Trigger(ctx context.Context, request *entities.NotificationRequest) error {
	log.Info().
		Str("type", string(request.Type)).
		Str("recipient_role", string(request.RecipientRole)).
		Str("recipient_id", request.RecipientID).
		Int("token_number", request.Context.TokenNumber).
		Msg("Mock notification triggered")
	return nil
}
