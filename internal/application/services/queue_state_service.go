package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

const queueStateCachePrefix = "queue:state:"

// QueueRecalculator rebuilds a session's queue state from a fresh ledger read.
// Every mutating operation triggers it after commit.
type QueueRecalculator interface {
	Recalculate(ctx context.Context, sessionID string) (*entities.QueueState, error)
}

// QueueStateService serves queue state snapshots through a read-through cache
// and rebuilds them after mutations. The cache is never authoritative: it is
// always reconstructible from the token ledger.
type QueueStateService struct {
	sessionRepo      repositories.SessionRepository
	tokenRepo        repositories.TokenRepository
	consultationRepo repositories.ConsultationRepository
	cache            providers.CacheProvider
	eventBus         providers.EventBus
	calculator       *ETACalculator
	metrics          *observability.Metrics
	cacheTTL         time.Duration
}

// NewQueueStateService creates a new queue state service
func NewQueueStateService(
	sessionRepo repositories.SessionRepository,
	tokenRepo repositories.TokenRepository,
	consultationRepo repositories.ConsultationRepository,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	calculator *ETACalculator,
	metrics *observability.Metrics,
	cacheTTL time.Duration,
) *QueueStateService {
	return &QueueStateService{
		sessionRepo:      sessionRepo,
		tokenRepo:        tokenRepo,
		consultationRepo: consultationRepo,
		cache:            cache,
		eventBus:         eventBus,
		calculator:       calculator,
		metrics:          metrics,
		cacheTTL:         cacheTTL,
	}
}

var _ QueueRecalculator = (*QueueStateService)(nil)

// GetSessionState returns the session's queue state, serving from cache when
// a fresh snapshot is present and rebuilding from the ledger otherwise
func (s *QueueStateService) GetSessionState(ctx context.Context, sessionID string) (*entities.QueueState, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("A session id is required")
	}

	cached, err := s.cache.Get(ctx, queueStateCacheKey(sessionID))
	if err == nil {
		var state entities.QueueState
		if err := json.Unmarshal(cached, &state); err == nil {
			if s.metrics != nil {
				observability.RecordCacheHit(ctx, s.metrics, queueStateCacheKey(sessionID))
			}
			return &state, nil
		}
		// Corrupt cache entry; fall through to a rebuild.
		observability.LoggerFromContext(ctx).Warn().
			Str("session_id", sessionID).
			Msg("Discarding unreadable queue state cache entry")
	}
	if s.metrics != nil {
		observability.RecordCacheMiss(ctx, s.metrics, queueStateCacheKey(sessionID))
	}

	return s.Recalculate(ctx, sessionID)
}

// Recalculate rebuilds the queue state from a fresh token-ledger read,
// persists the ETAs that changed, overwrites the cache, and publishes the
// snapshot as a session update event. Cache and publish failures are logged,
// never returned: the snapshot itself is still valid.
func (s *QueueStateService) Recalculate(ctx context.Context, sessionID string) (*entities.QueueState, error) {
	started := time.Now()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokenRepo.ListActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	consultations, err := s.consultationRepo.ListRecentCompleted(ctx, sessionID, session.StartTime, s.calculator.SampleWindow())
	if err != nil {
		return nil, err
	}

	state, updates := s.calculator.Recalculate(session, tokens, consultations)

	if len(updates) > 0 {
		if err := s.tokenRepo.UpdateETAs(ctx, updates); err != nil {
			return nil, err
		}
	}

	logger := observability.LoggerFromContext(ctx)

	data, err := json.Marshal(state)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode queue state", err)
	}
	if err := s.cache.Set(ctx, queueStateCacheKey(sessionID), data, s.cacheTTL); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to cache queue state")
	}

	if s.eventBus != nil {
		event := entities.NewQueueEvent(sessionID, entities.QueueEventSessionUpdate, map[string]interface{}{
			"state": state,
		})
		if err := s.eventBus.Publish(ctx, providers.GetSessionChannel(sessionID), event); err != nil {
			logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish session update event")
		}
	}

	if s.metrics != nil {
		observability.RecordRecalc(ctx, s.metrics, sessionID, len(state.Entries), time.Since(started))
	}

	logger.Debug().
		Str("session_id", sessionID).
		Int("active_tokens", len(state.Entries)).
		Int("eta_writes", len(updates)).
		Bool("observed_applied", state.ObservedApplied).
		Dur("took", time.Since(started)).
		Msg("Recalculated queue state")

	return state, nil
}

// InvalidateSessionState drops the cached snapshot so the next read rebuilds
func (s *QueueStateService) InvalidateSessionState(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, queueStateCacheKey(sessionID))
}

func queueStateCacheKey(sessionID string) string {
	return queueStateCachePrefix + sessionID
}
