package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

type sessionFixture struct {
	sessionRepo  *MockSessionRepository
	tokenRepo    *MockTokenRepository
	eventBus     *MockEventBus
	recalculator *MockRecalculator
	service      *SessionService
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessionRepo:  new(MockSessionRepository),
		tokenRepo:    new(MockTokenRepository),
		eventBus:     new(MockEventBus),
		recalculator: new(MockRecalculator),
	}
	f.service = NewSessionService(f.sessionRepo, f.tokenRepo, f.eventBus, f.recalculator)
	return f
}

func createRequest() CreateSessionRequest {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return CreateSessionRequest{
		ProviderID:        "provider-1",
		LocationID:        "location-1",
		StartTime:         start,
		EndTime:           start.Add(3 * time.Hour),
		AvgServiceMinutes: 15,
		ConsultationFee:   500,
		Currency:          "NGN",
	}
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("plans capacity from the window and pace", func(t *testing.T) {
		f := newSessionFixture()
		f.sessionRepo.On("Create", ctx, mock.MatchedBy(func(session *entities.Session) bool {
			return session.Capacity == 12 &&
				session.Status == entities.SessionStatusScheduled &&
				session.NextTokenNumber == 1 &&
				session.ID != ""
		})).Return(nil)

		session, err := f.service.CreateSession(ctx, createRequest())

		assert.NoError(t, err)
		assert.Equal(t, 12, session.Capacity)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("capacity override wins", func(t *testing.T) {
		f := newSessionFixture()
		request := createRequest()
		request.CapacityOverride = 20

		f.sessionRepo.On("Create", ctx, mock.Anything).Return(nil)

		session, err := f.service.CreateSession(ctx, request)
		assert.NoError(t, err)
		assert.Equal(t, 20, session.Capacity)
	})

	t.Run("allows deferring the average service time", func(t *testing.T) {
		f := newSessionFixture()
		request := createRequest()
		request.AvgServiceMinutes = 0

		f.sessionRepo.On("Create", ctx, mock.Anything).Return(nil)

		session, err := f.service.CreateSession(ctx, request)
		assert.NoError(t, err)
		assert.Equal(t, 0, session.Capacity)
		assert.False(t, session.HasAvgServiceTime())
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		f := newSessionFixture()

		cases := []struct {
			name   string
			mutate func(*CreateSessionRequest)
		}{
			{"missing provider", func(r *CreateSessionRequest) { r.ProviderID = "" }},
			{"end before start", func(r *CreateSessionRequest) { r.EndTime = r.StartTime.Add(-time.Hour) }},
			{"average below bound", func(r *CreateSessionRequest) { r.AvgServiceMinutes = 3 }},
			{"average above bound", func(r *CreateSessionRequest) { r.AvgServiceMinutes = 90 }},
			{"negative buffer", func(r *CreateSessionRequest) { r.BufferMinutes = -5 }},
			{"negative fee", func(r *CreateSessionRequest) { r.ConsultationFee = -1 }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				request := createRequest()
				tc.mutate(&request)
				_, err := f.service.CreateSession(ctx, request)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			})
		}
		f.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("takes a scheduled session live", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusScheduled

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entities.Session) bool {
			return updated.Status == entities.SessionStatusLive
		})).Return(nil)

		started, err := f.service.StartSession(ctx, "session-1")
		assert.NoError(t, err)
		assert.Equal(t, entities.SessionStatusLive, started.Status)
	})

	t.Run("refuses to start without an average service time", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusScheduled
		session.AvgServiceMinutes = 0

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)

		_, err := f.service.StartSession(ctx, "session-1")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
		f.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("refuses to start a live session again", func(t *testing.T) {
		f := newSessionFixture()
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(bookableSession(), nil)

		_, err := f.service.StartSession(ctx, "session-1")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	})
}

func TestPauseAndResume(t *testing.T) {
	ctx := context.Background()

	t.Run("pauses a live session with metadata", func(t *testing.T) {
		f := newSessionFixture()
		resumeAt := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(bookableSession(), nil)
		f.sessionRepo.On("SetPaused", ctx, "session-1", true, "emergency", &resumeAt).Return(nil)
		f.eventBus.On("Publish", ctx, "session:session-1", mock.Anything).Return(nil)

		err := f.service.PauseSession(ctx, "session-1", "emergency", &resumeAt)
		assert.NoError(t, err)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("only live sessions can pause", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusScheduled
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)

		err := f.service.PauseSession(ctx, "session-1", "", nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	})

	t.Run("resume recalculates so ETAs absorb the downtime", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusPaused

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.sessionRepo.On("SetPaused", ctx, "session-1", false, "", (*time.Time)(nil)).Return(nil)
		f.recalculator.On("Recalculate", ctx, "session-1").Return(&entities.QueueState{}, nil)
		f.eventBus.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

		err := f.service.ResumeSession(ctx, "session-1")
		assert.NoError(t, err)
		f.recalculator.AssertExpectations(t)
	})

	t.Run("only paused sessions can resume", func(t *testing.T) {
		f := newSessionFixture()
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(bookableSession(), nil)

		err := f.service.ResumeSession(ctx, "session-1")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	})
}

func TestUpdateAverageServiceMinutes(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the pace and recalculates a live queue", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.IssuedCount = 4

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entities.Session) bool {
			// 240 minute window at 20 minutes per visit.
			return updated.AvgServiceMinutes == 20 && updated.Capacity == 12
		})).Return(nil)
		f.recalculator.On("Recalculate", ctx, "session-1").Return(&entities.QueueState{}, nil)

		updated, err := f.service.UpdateAverageServiceMinutes(ctx, "session-1", 20)
		assert.NoError(t, err)
		assert.Equal(t, 20, updated.AvgServiceMinutes)
		f.recalculator.AssertExpectations(t)
	})

	t.Run("capacity never shrinks below issued tokens", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.IssuedCount = 10

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entities.Session) bool {
			// A 60 minute pace plans only 4 slots, but 10 are already issued.
			return updated.Capacity == 10
		})).Return(nil)
		f.recalculator.On("Recalculate", ctx, "session-1").Return(&entities.QueueState{}, nil)

		_, err := f.service.UpdateAverageServiceMinutes(ctx, "session-1", 60)
		assert.NoError(t, err)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("drops the cached snapshot when an idle session's pace changes", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusScheduled

		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)
		f.sessionRepo.On("Update", ctx, mock.Anything).Return(nil)
		f.recalculator.On("InvalidateSessionState", ctx, "session-1").Return(nil)

		_, err := f.service.UpdateAverageServiceMinutes(ctx, "session-1", 20)

		assert.NoError(t, err)
		f.recalculator.AssertCalled(t, "InvalidateSessionState", ctx, "session-1")
		f.recalculator.AssertNotCalled(t, "Recalculate", mock.Anything, mock.Anything)
	})

	t.Run("rejects values outside the bounds", func(t *testing.T) {
		f := newSessionFixture()
		_, err := f.service.UpdateAverageServiceMinutes(ctx, "session-1", 3)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		f.sessionRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("rejects terminal sessions", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusCompleted
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)

		_, err := f.service.UpdateAverageServiceMinutes(ctx, "session-1", 20)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	})
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a live session", func(t *testing.T) {
		f := newSessionFixture()
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(bookableSession(), nil)
		f.sessionRepo.On("Update", ctx, mock.MatchedBy(func(updated *entities.Session) bool {
			return updated.Status == entities.SessionStatusCompleted && !updated.Paused
		})).Return(nil)
		f.eventBus.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

		session, err := f.service.CompleteSession(ctx, "session-1")
		assert.NoError(t, err)
		assert.Equal(t, entities.SessionStatusCompleted, session.Status)
	})

	t.Run("a scheduled session cannot complete", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusScheduled
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)

		_, err := f.service.CompleteSession(ctx, "session-1")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	})
}

func TestCancelSession(t *testing.T) {
	ctx := context.Background()

	t.Run("force-cancels the remaining queue", func(t *testing.T) {
		f := newSessionFixture()
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(bookableSession(), nil)
		f.tokenRepo.On("CancelSessionTokens", ctx, "session-1", "provider-1", "provider", "clinic closed").Return(5, nil)
		f.recalculator.On("Recalculate", ctx, "session-1").Return(&entities.QueueState{}, nil)
		f.eventBus.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

		err := f.service.CancelSession(ctx, "session-1", "provider-1", "provider", "clinic closed")
		assert.NoError(t, err)
		f.tokenRepo.AssertExpectations(t)
	})

	t.Run("a cancelled session cannot cancel again", func(t *testing.T) {
		f := newSessionFixture()
		session := bookableSession()
		session.Status = entities.SessionStatusCancelled
		f.sessionRepo.On("GetByID", ctx, "session-1").Return(session, nil)

		err := f.service.CancelSession(ctx, "session-1", "provider-1", "provider", "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
		f.tokenRepo.AssertNotCalled(t, "CancelSessionTokens", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
