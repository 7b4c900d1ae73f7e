package services

import (
	"context"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
)

// Notifier dispatches typed notifications for queue events. Dispatch is
// best-effort: failures are logged and never surfaced to the caller.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, session *entities.Session, token *entities.Token, booking *entities.Booking)
	SendTokenNotification(ctx context.Context, session *entities.Session, token *entities.Token, notificationType entities.NotificationType)
}

// NotificationService builds display contexts for queue notifications and
// hands them to the external notification trigger
type NotificationService struct {
	trigger providers.NotificationTrigger
}

// NewNotificationService creates a new notification service
func NewNotificationService(trigger providers.NotificationTrigger) *NotificationService {
	return &NotificationService{
		trigger: trigger,
	}
}

var _ Notifier = (*NotificationService)(nil)

// SendBookingConfirmation notifies patient and provider that a token was
// issued against the session
func (n *NotificationService) SendBookingConfirmation(ctx context.Context, session *entities.Session, token *entities.Token, booking *entities.Booking) {
	notifCtx := n.buildContext(session, token)
	notifCtx.BookingID = booking.ID

	n.dispatch(ctx, &entities.NotificationRequest{
		Type:          entities.NotificationBookingConfirmed,
		RecipientRole: entities.RecipientPatient,
		RecipientID:   token.PatientID,
		Context:       notifCtx,
		CreatedAt:     time.Now().UTC(),
	})
	n.dispatch(ctx, &entities.NotificationRequest{
		Type:          entities.NotificationBookingConfirmed,
		RecipientRole: entities.RecipientProvider,
		RecipientID:   session.ProviderID,
		Context:       notifCtx,
		CreatedAt:     time.Now().UTC(),
	})
}

// SendTokenNotification notifies the patient of a lifecycle change; no-shows
// are additionally reported to the provider
func (n *NotificationService) SendTokenNotification(ctx context.Context, session *entities.Session, token *entities.Token, notificationType entities.NotificationType) {
	notifCtx := n.buildContext(session, token)

	n.dispatch(ctx, &entities.NotificationRequest{
		Type:          notificationType,
		RecipientRole: entities.RecipientPatient,
		RecipientID:   token.PatientID,
		Context:       notifCtx,
		CreatedAt:     time.Now().UTC(),
	})

	if notificationType == entities.NotificationTokenNoShow {
		n.dispatch(ctx, &entities.NotificationRequest{
			Type:          notificationType,
			RecipientRole: entities.RecipientProvider,
			RecipientID:   session.ProviderID,
			Context:       notifCtx,
			CreatedAt:     time.Now().UTC(),
		})
	}
}

func (n *NotificationService) buildContext(session *entities.Session, token *entities.Token) entities.NotificationContext {
	return entities.NotificationContext{
		SessionID:     session.ID,
		TokenID:       token.ID,
		TokenNumber:   token.TokenNumber,
		BookingID:     token.BookingID,
		PatientID:     token.PatientID,
		ProviderID:    session.ProviderID,
		ScheduledDate: session.StartTime.Format("Monday, January 2, 2006"),
		ScheduledTime: session.StartTime.Format("3:04 PM"),
		ETA:           token.ETA,
	}
}

func (n *NotificationService) dispatch(ctx context.Context, request *entities.NotificationRequest) {
	if err := n.trigger.Trigger(ctx, request); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("notification_type", string(request.Type)).
			Str("recipient_role", string(request.RecipientRole)).
			Str("recipient_id", request.RecipientID).
			Msg("Failed to trigger notification")
	}
}
