package services

import (
	"context"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
)

// TransitionRequest identifies the token and the actor driving a lifecycle
// transition
type TransitionRequest struct {
	TokenID   string
	ActorID   string
	ActorRole string
	Notes     string
}

// LifecycleService enforces the token state machine. Each transition is one
// guarded atomic write to the token ledger followed by the shared
// recalculate/publish/notify path; invalid transitions fail with no changes.
type LifecycleService struct {
	tokenRepo        repositories.TokenRepository
	sessionRepo      repositories.SessionRepository
	consultationRepo repositories.ConsultationRepository
	eventBus         providers.EventBus
	recalculator     QueueRecalculator
	notifier         Notifier
	metrics          *observability.Metrics
	maxRecalls       int
	now              func() time.Time
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	tokenRepo repositories.TokenRepository,
	sessionRepo repositories.SessionRepository,
	consultationRepo repositories.ConsultationRepository,
	eventBus providers.EventBus,
	recalculator QueueRecalculator,
	notifier Notifier,
	metrics *observability.Metrics,
	maxRecalls int,
) *LifecycleService {
	return &LifecycleService{
		tokenRepo:        tokenRepo,
		sessionRepo:      sessionRepo,
		consultationRepo: consultationRepo,
		eventBus:         eventBus,
		recalculator:     recalculator,
		notifier:         notifier,
		metrics:          metrics,
		maxRecalls:       maxRecalls,
		now:              time.Now,
	}
}

// CallToken summons the token to the consultation room and moves the
// session's current pointer onto it
func (s *LifecycleService) CallToken(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      []entities.TokenStatus{entities.TokenStatusWaiting, entities.TokenStatusRecalled, entities.TokenStatusSkipped},
		ToStatus:          entities.TokenStatusCalled,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        s.now().UTC(),
		SetCurrentPointer: true,
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenCalled, entities.NotificationTokenCalled)
	return token, nil
}

// MarkVisited records that the patient entered the consultation and ensures
// a consultation record exists for the token
func (s *LifecycleService) MarkVisited(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	occurredAt := s.now().UTC()
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      []entities.TokenStatus{entities.TokenStatusCalled, entities.TokenStatusRecalled},
		ToStatus:          entities.TokenStatusVisited,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        occurredAt,
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.ensureConsultation(ctx, token, occurredAt)
	s.afterTransition(ctx, token, entities.QueueEventTokenVisited, "")
	return token, nil
}

// CompleteToken closes the visit. The consultation is marked completed and
// the queue is recalculated immediately so later tokens benefit from the
// just-observed service duration.
func (s *LifecycleService) CompleteToken(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	occurredAt := s.now().UTC()
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      []entities.TokenStatus{entities.TokenStatusVisited, entities.TokenStatusCalled, entities.TokenStatusRecalled},
		ToStatus:          entities.TokenStatusCompleted,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        occurredAt,
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.consultationRepo.CompleteForToken(ctx, token.ID, occurredAt); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("token_id", token.ID).
			Msg("Failed to complete consultation record")
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenCompleted, entities.NotificationTokenCompleted)
	return token, nil
}

// SkipToken sets the token aside when the patient is absent at call time;
// skipped tokens stay in the queue and can be recalled
func (s *LifecycleService) SkipToken(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      nonTerminalExcept(entities.TokenStatusSkipped),
		ToStatus:          entities.TokenStatusSkipped,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        s.now().UTC(),
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenSkipped, entities.NotificationTokenSkipped)
	return token, nil
}

// RecallToken re-summons a waiting, called, or skipped token, bounded by the
// configured maximum recall count
func (s *LifecycleService) RecallToken(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      []entities.TokenStatus{entities.TokenStatusWaiting, entities.TokenStatusCalled, entities.TokenStatusSkipped},
		ToStatus:          entities.TokenStatusRecalled,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        s.now().UTC(),
		MaxRecalls:        s.maxRecalls,
		SetCurrentPointer: true,
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenRecalled, entities.NotificationTokenRecalled)
	return token, nil
}

// MarkNoShow closes the token because the patient never turned up
func (s *LifecycleService) MarkNoShow(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      entities.ActiveTokenStatuses(),
		ToStatus:          entities.TokenStatusNoShow,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        s.now().UTC(),
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenNoShow, entities.NotificationTokenNoShow)
	return token, nil
}

// CancelToken cancels the token; the booking is cancelled with it. The
// patient's slot opens up for a new booking.
func (s *LifecycleService) CancelToken(ctx context.Context, request TransitionRequest) (*entities.Token, error) {
	token, err := s.tokenRepo.Transition(ctx, repositories.TransitionInput{
		TokenID:           request.TokenID,
		FromStatuses:      entities.ActiveTokenStatuses(),
		ToStatus:          entities.TokenStatusCancelled,
		ActorID:           request.ActorID,
		ActorRole:         request.ActorRole,
		Notes:             request.Notes,
		OccurredAt:        s.now().UTC(),
		SyncBookingStatus: true,
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, token, entities.QueueEventTokenCancelled, entities.NotificationTokenCancelled)
	return token, nil
}

// GetToken retrieves a token by id
func (s *LifecycleService) GetToken(ctx context.Context, tokenID string) (*entities.Token, error) {
	return s.tokenRepo.GetByID(ctx, tokenID)
}

// afterTransition runs the shared post-commit path: recalculation, the typed
// event, and the typed notification when one applies. All best-effort.
func (s *LifecycleService) afterTransition(ctx context.Context, token *entities.Token, eventType entities.QueueEventType, notificationType entities.NotificationType) {
	logger := observability.LoggerFromContext(ctx)

	if s.metrics != nil {
		observability.RecordTokenTransition(ctx, s.metrics, string(token.Status))
	}

	if _, err := s.recalculator.Recalculate(ctx, token.SessionID); err != nil {
		logger.Error().Err(err).Str("session_id", token.SessionID).Msg("Failed to recalculate queue state after transition")
	}

	if s.eventBus != nil {
		event := entities.NewQueueEvent(token.SessionID, eventType, map[string]interface{}{
			"token_id":     token.ID,
			"token_number": token.TokenNumber,
			"status":       token.Status,
		})
		if err := s.eventBus.Publish(ctx, providers.GetSessionChannel(token.SessionID), event); err != nil {
			logger.Error().Err(err).Str("session_id", token.SessionID).Msg("Failed to publish token event")
		}
	}

	if notificationType == "" {
		return
	}

	session, err := s.sessionRepo.GetByID(ctx, token.SessionID)
	if err != nil {
		logger.Error().Err(err).Str("session_id", token.SessionID).Msg("Failed to load session for notification")
		return
	}
	s.notifier.SendTokenNotification(ctx, session, token, notificationType)
}

// ensureConsultation creates the consultation record for a visited token.
// Ensure semantics are idempotent; a failure here is retried the next time
// the token is marked visited.
func (s *LifecycleService) ensureConsultation(ctx context.Context, token *entities.Token, startedAt time.Time) {
	session, err := s.sessionRepo.GetByID(ctx, token.SessionID)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("token_id", token.ID).
			Msg("Failed to load session for consultation record")
		return
	}

	var bookingID *string
	if token.BookingID != "" {
		bookingID = &token.BookingID
	}

	if _, err := s.consultationRepo.EnsureForToken(ctx, repositories.EnsureConsultationInput{
		TokenID:    token.ID,
		SessionID:  token.SessionID,
		ProviderID: session.ProviderID,
		PatientID:  token.PatientID,
		BookingID:  bookingID,
		StartedAt:  startedAt,
	}); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("token_id", token.ID).
			Msg("Failed to ensure consultation record")
	}
}

// nonTerminalExcept lists every active status except the given one
func nonTerminalExcept(excluded entities.TokenStatus) []entities.TokenStatus {
	statuses := make([]entities.TokenStatus, 0, 4)
	for _, status := range entities.ActiveTokenStatuses() {
		if status != excluded {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
