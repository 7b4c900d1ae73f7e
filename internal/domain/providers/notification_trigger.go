package providers

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// NotificationTrigger defines the interface for handing typed notification
// requests to the external delivery pipeline. Delivery mechanics (WhatsApp,
// SMS, push) are entirely out of scope here.
type NotificationTrigger interface {
	// Trigger enqueues one notification request
	Trigger(ctx context.Context, request *entities.NotificationRequest) error
}
