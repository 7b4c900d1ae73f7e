package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

type lifecycleFixture struct {
	tokenRepo        *MockTokenRepository
	sessionRepo      *MockSessionRepository
	consultationRepo *MockConsultationRepository
	eventBus         *MockEventBus
	recalculator     *MockRecalculator
	notifier         *MockNotifier
	service          *LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		tokenRepo:        new(MockTokenRepository),
		sessionRepo:      new(MockSessionRepository),
		consultationRepo: new(MockConsultationRepository),
		eventBus:         new(MockEventBus),
		recalculator:     new(MockRecalculator),
		notifier:         new(MockNotifier),
	}
	f.service = NewLifecycleService(
		f.tokenRepo,
		f.sessionRepo,
		f.consultationRepo,
		f.eventBus,
		f.recalculator,
		f.notifier,
		nil,
		2,
	)
	return f
}

// expectAfterTransition wires the best-effort post-commit path
func (f *lifecycleFixture) expectAfterTransition(ctx context.Context, session *entities.Session) {
	f.recalculator.On("Recalculate", ctx, mock.Anything).Return(&entities.QueueState{}, nil)
	f.eventBus.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)
	if session != nil {
		f.sessionRepo.On("GetByID", ctx, mock.Anything).Return(session, nil)
		f.notifier.On("SendTokenNotification", ctx, session, mock.Anything, mock.Anything).Return()
	}
}

func transitionedToken(status entities.TokenStatus) *entities.Token {
	return &entities.Token{
		ID:          "token-1",
		SessionID:   "session-1",
		PatientID:   "patient-1",
		BookingID:   "booking-1",
		TokenNumber: 3,
		Status:      status,
	}
}

func TestCallToken(t *testing.T) {
	ctx := context.Background()

	t.Run("calls from waiting, recalled, or skipped and moves the pointer", func(t *testing.T) {
		f := newLifecycleFixture()
		called := transitionedToken(entities.TokenStatusCalled)

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusCalled &&
				input.SetCurrentPointer &&
				input.SyncBookingStatus &&
				assert.ObjectsAreEqual(input.FromStatuses, []entities.TokenStatus{
					entities.TokenStatusWaiting, entities.TokenStatusRecalled, entities.TokenStatusSkipped,
				})
		})).Return(called, nil)
		f.expectAfterTransition(ctx, bookableSession())

		token, err := f.service.CallToken(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})

		assert.NoError(t, err)
		assert.Equal(t, entities.TokenStatusCalled, token.Status)
		f.notifier.AssertCalled(t, "SendTokenNotification", ctx, mock.Anything, called, entities.NotificationTokenCalled)
	})

	t.Run("guard failures pass through untouched", func(t *testing.T) {
		f := newLifecycleFixture()
		f.tokenRepo.On("Transition", ctx, mock.Anything).
			Return(nil, apperrors.NewInvalidStateError("Token cannot move from completed to called"))

		_, err := f.service.CallToken(ctx, TransitionRequest{TokenID: "token-1"})

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
		f.recalculator.AssertNotCalled(t, "Recalculate", mock.Anything, mock.Anything)
	})
}

func TestMarkVisited(t *testing.T) {
	ctx := context.Background()

	t.Run("ensures a consultation record and sends no notification", func(t *testing.T) {
		f := newLifecycleFixture()
		session := bookableSession()
		visited := transitionedToken(entities.TokenStatusVisited)

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusVisited &&
				assert.ObjectsAreEqual(input.FromStatuses, []entities.TokenStatus{
					entities.TokenStatusCalled, entities.TokenStatusRecalled,
				})
		})).Return(visited, nil)
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.consultationRepo.On("EnsureForToken", ctx, mock.MatchedBy(func(input repositories.EnsureConsultationInput) bool {
			return input.TokenID == "token-1" && input.ProviderID == "provider-1" && *input.BookingID == "booking-1"
		})).Return(&entities.Consultation{ID: "consult-1"}, nil)
		f.recalculator.On("Recalculate", ctx, "session-1").Return(&entities.QueueState{}, nil)
		f.eventBus.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

		token, err := f.service.MarkVisited(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})

		assert.NoError(t, err)
		assert.Equal(t, entities.TokenStatusVisited, token.Status)
		f.consultationRepo.AssertExpectations(t)
		f.notifier.AssertNotCalled(t, "SendTokenNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCompleteToken(t *testing.T) {
	ctx := context.Background()

	t.Run("completes the consultation and recalculates", func(t *testing.T) {
		f := newLifecycleFixture()
		completed := transitionedToken(entities.TokenStatusCompleted)

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusCompleted
		})).Return(completed, nil)
		f.consultationRepo.On("CompleteForToken", ctx, "token-1", mock.Anything).Return(nil)
		f.expectAfterTransition(ctx, bookableSession())

		token, err := f.service.CompleteToken(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})

		assert.NoError(t, err)
		assert.Equal(t, entities.TokenStatusCompleted, token.Status)
		f.consultationRepo.AssertExpectations(t)
		f.recalculator.AssertCalled(t, "Recalculate", ctx, "session-1")
	})
}

func TestRecallToken(t *testing.T) {
	ctx := context.Background()

	t.Run("recalls with the configured bound", func(t *testing.T) {
		f := newLifecycleFixture()
		recalled := transitionedToken(entities.TokenStatusRecalled)
		recalled.RecallCount = 1

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusRecalled &&
				input.MaxRecalls == 2 &&
				input.SetCurrentPointer
		})).Return(recalled, nil)
		f.expectAfterTransition(ctx, bookableSession())

		token, err := f.service.RecallToken(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})

		assert.NoError(t, err)
		assert.Equal(t, 1, token.RecallCount)
	})

	t.Run("recall limit conflicts pass through", func(t *testing.T) {
		f := newLifecycleFixture()
		f.tokenRepo.On("Transition", ctx, mock.Anything).
			Return(nil, apperrors.NewConflictError("Maximum recalls reached for this token"))

		_, err := f.service.RecallToken(ctx, TransitionRequest{TokenID: "token-1"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})
}

func TestMarkNoShowAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("no-show transitions from any active status", func(t *testing.T) {
		f := newLifecycleFixture()
		noShow := transitionedToken(entities.TokenStatusNoShow)

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusNoShow &&
				assert.ObjectsAreEqual(input.FromStatuses, entities.ActiveTokenStatuses())
		})).Return(noShow, nil)
		f.expectAfterTransition(ctx, bookableSession())

		token, err := f.service.MarkNoShow(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})

		assert.NoError(t, err)
		assert.Equal(t, entities.TokenStatusNoShow, token.Status)
		f.notifier.AssertCalled(t, "SendTokenNotification", ctx, mock.Anything, noShow, entities.NotificationTokenNoShow)
	})

	t.Run("cancellation mirrors onto the booking", func(t *testing.T) {
		f := newLifecycleFixture()
		cancelled := transitionedToken(entities.TokenStatusCancelled)

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			return input.ToStatus == entities.TokenStatusCancelled && input.SyncBookingStatus
		})).Return(cancelled, nil)
		f.expectAfterTransition(ctx, bookableSession())

		token, err := f.service.CancelToken(ctx, TransitionRequest{TokenID: "token-1", ActorID: "patient-1", ActorRole: "patient"})

		assert.NoError(t, err)
		assert.Equal(t, entities.TokenStatusCancelled, token.Status)
	})
}

func TestSkipToken(t *testing.T) {
	ctx := context.Background()

	t.Run("skipping an already skipped token is rejected by the guard", func(t *testing.T) {
		f := newLifecycleFixture()

		f.tokenRepo.On("Transition", ctx, mock.MatchedBy(func(input repositories.TransitionInput) bool {
			for _, status := range input.FromStatuses {
				if status == entities.TokenStatusSkipped {
					return false
				}
			}
			return input.ToStatus == entities.TokenStatusSkipped
		})).Return(transitionedToken(entities.TokenStatusSkipped), nil)
		f.expectAfterTransition(ctx, bookableSession())

		_, err := f.service.SkipToken(ctx, TransitionRequest{TokenID: "token-1", ActorID: "provider-1", ActorRole: "provider"})
		assert.NoError(t, err)
		f.tokenRepo.AssertExpectations(t)
	})
}
