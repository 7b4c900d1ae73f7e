package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

// CreateSessionRequest carries the inputs for a new session. A zero
// AvgServiceMinutes means "not configured yet"; the session then cannot go
// live or accept tokens until the provider sets it. CapacityOverride, when
// positive, replaces the planned capacity.
type CreateSessionRequest struct {
	ProviderID        string
	LocationID        string
	StartTime         time.Time
	EndTime           time.Time
	AvgServiceMinutes int
	BufferMinutes     int
	CapacityOverride  int
	ConsultationFee   float64
	Currency          string
}

// QueueStateMaintainer rebuilds a session's queue state or drops the cached
// snapshot when no rebuild is warranted
type QueueStateMaintainer interface {
	QueueRecalculator
	InvalidateSessionState(ctx context.Context, sessionID string) error
}

// SessionService owns session creation and the session-level controls:
// start, pause/resume, average-service-time updates, completion, and
// cancellation
type SessionService struct {
	sessionRepo repositories.SessionRepository
	tokenRepo   repositories.TokenRepository
	eventBus    providers.EventBus
	queueState  QueueStateMaintainer
	now         func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo repositories.SessionRepository,
	tokenRepo repositories.TokenRepository,
	eventBus providers.EventBus,
	queueState QueueStateMaintainer,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		eventBus:    eventBus,
		queueState:  queueState,
		now:         time.Now,
	}
}

// CreateSession plans capacity from the session window and persists the new
// session in scheduled status
func (s *SessionService) CreateSession(ctx context.Context, request CreateSessionRequest) (*entities.Session, error) {
	if request.ProviderID == "" {
		return nil, apperrors.NewValidationError("A provider id is required")
	}
	if !request.EndTime.After(request.StartTime) {
		return nil, apperrors.NewValidationError("Session end time must be after the start time")
	}
	if request.AvgServiceMinutes != 0 &&
		(request.AvgServiceMinutes < MinAvgServiceMinutes || request.AvgServiceMinutes > MaxAvgServiceMinutes) {
		return nil, apperrors.NewValidationError("Average service time must be between 5 and 60 minutes")
	}
	if request.BufferMinutes < 0 {
		return nil, apperrors.NewValidationError("Buffer minutes must not be negative")
	}
	if request.ConsultationFee < 0 {
		return nil, apperrors.NewValidationError("Consultation fee must not be negative")
	}

	capacity := request.CapacityOverride
	if capacity <= 0 {
		capacity = Capacity(request.StartTime, request.EndTime, request.AvgServiceMinutes, request.BufferMinutes)
	}

	now := s.now().UTC()
	session := &entities.Session{
		ID:                uuid.New().String(),
		ProviderID:        request.ProviderID,
		LocationID:        request.LocationID,
		StartTime:         request.StartTime,
		EndTime:           request.EndTime,
		AvgServiceMinutes: request.AvgServiceMinutes,
		BufferMinutes:     request.BufferMinutes,
		Capacity:          capacity,
		ConsultationFee:   request.ConsultationFee,
		Currency:          request.Currency,
		Status:            entities.SessionStatusScheduled,
		NextTokenNumber:   1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by id
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// ListProviderSessions retrieves a provider's sessions
func (s *SessionService) ListProviderSessions(ctx context.Context, providerID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	return s.sessionRepo.ListByProvider(ctx, providerID, filter)
}

// StartSession takes a scheduled session live. The average service time must
// be configured first; it is never silently defaulted.
func (s *SessionService) StartSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != entities.SessionStatusScheduled {
		return nil, apperrors.NewInvalidStateError("Only a scheduled session can be started")
	}
	if !session.HasAvgServiceTime() {
		return nil, apperrors.NewInvalidStateError("Average service time is not configured for this session")
	}

	session.Status = entities.SessionStatusLive
	session.UpdatedAt = s.now().UTC()
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// PauseSession pauses a live session
func (s *SessionService) PauseSession(ctx context.Context, sessionID, reason string, resumeAt *time.Time) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != entities.SessionStatusLive {
		return apperrors.NewInvalidStateError("Only a live session can be paused")
	}

	if err := s.sessionRepo.SetPaused(ctx, sessionID, true, reason, resumeAt); err != nil {
		return err
	}

	s.publish(ctx, sessionID, entities.QueueEventSessionPaused, map[string]interface{}{
		"reason":    reason,
		"resume_at": resumeAt,
	})
	return nil
}

// ResumeSession resumes a paused session and recalculates so ETAs reflect
// the downtime
func (s *SessionService) ResumeSession(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != entities.SessionStatusPaused {
		return apperrors.NewInvalidStateError("Only a paused session can be resumed")
	}

	if err := s.sessionRepo.SetPaused(ctx, sessionID, false, "", nil); err != nil {
		return err
	}

	if _, err := s.queueState.Recalculate(ctx, sessionID); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to recalculate queue state after resume")
	}

	s.publish(ctx, sessionID, entities.QueueEventSessionResumed, nil)
	return nil
}

// UpdateAverageServiceMinutes changes the configured pace of the session.
// When the session is live or already holds tokens, the queue is
// recalculated immediately so in-flight ETAs reflect the new pace. Planned
// capacity is recomputed but never shrunk below the tokens already issued.
func (s *SessionService) UpdateAverageServiceMinutes(ctx context.Context, sessionID string, minutes int) (*entities.Session, error) {
	if minutes < MinAvgServiceMinutes || minutes > MaxAvgServiceMinutes {
		return nil, apperrors.NewValidationError("Average service time must be between 5 and 60 minutes")
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, apperrors.NewInvalidStateError("Session is no longer accepting changes")
	}

	session.AvgServiceMinutes = minutes
	capacity := Capacity(session.StartTime, session.EndTime, minutes, session.BufferMinutes)
	if capacity < session.IssuedCount {
		capacity = session.IssuedCount
	}
	session.Capacity = capacity
	session.UpdatedAt = s.now().UTC()

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	if session.Status == entities.SessionStatusLive || session.IssuedCount > 0 {
		if _, err := s.queueState.Recalculate(ctx, sessionID); err != nil {
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("session_id", sessionID).
				Msg("Failed to recalculate queue state after average update")
		}
	} else if err := s.queueState.InvalidateSessionState(ctx, sessionID); err != nil {
		// No tokens to recalculate, but a cached snapshot would now carry
		// the old pace.
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to invalidate queue state after average update")
	}

	return session, nil
}

// CompleteSession closes out a session
func (s *SessionService) CompleteSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != entities.SessionStatusLive && session.Status != entities.SessionStatusPaused {
		return nil, apperrors.NewInvalidStateError("Only a live or paused session can be completed")
	}

	session.Status = entities.SessionStatusCompleted
	session.Paused = false
	session.UpdatedAt = s.now().UTC()
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, sessionID, entities.QueueEventSessionUpdate, map[string]interface{}{
		"status": session.Status,
	})
	return session, nil
}

// CancelSession cancels the session and force-cancels every token still in
// the queue, in one transaction
func (s *SessionService) CancelSession(ctx context.Context, sessionID, actorID, actorRole, reason string) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return apperrors.NewInvalidStateError("Session has already ended")
	}

	cancelled, err := s.tokenRepo.CancelSessionTokens(ctx, sessionID, actorID, actorRole, reason)
	if err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("session_id", sessionID).
		Int("cancelled_tokens", cancelled).
		Msg("Cancelled session")

	if _, err := s.queueState.Recalculate(ctx, sessionID); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to recalculate queue state after cancellation")
	}

	s.publish(ctx, sessionID, entities.QueueEventSessionUpdate, map[string]interface{}{
		"status":           entities.SessionStatusCancelled,
		"cancelled_tokens": cancelled,
		"reason":           reason,
	})
	return nil
}

func (s *SessionService) publish(ctx context.Context, sessionID string, eventType entities.QueueEventType, payload map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewQueueEvent(sessionID, eventType, payload)
	if err := s.eventBus.Publish(ctx, providers.GetSessionChannel(sessionID), event); err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("session_id", sessionID).
			Str("event_type", string(eventType)).
			Msg("Failed to publish session event")
	}
}
