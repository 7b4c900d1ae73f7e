package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) SetPaused(ctx context.Context, id string, paused bool, reason string, resumeAt *time.Time) error {
	args := m.Called(ctx, id, paused, reason, resumeAt)
	return args.Error(0)
}

func (m *MockSessionRepository) ListByProvider(ctx context.Context, providerID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	args := m.Called(ctx, providerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Session), args.Error(1)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Issue(ctx context.Context, input repositories.IssueTokenInput) (*entities.Token, *entities.Booking, error) {
	args := m.Called(ctx, input)
	var token *entities.Token
	var booking *entities.Booking
	if args.Get(0) != nil {
		token = args.Get(0).(*entities.Token)
	}
	if args.Get(1) != nil {
		booking = args.Get(1).(*entities.Booking)
	}
	return token, booking, args.Error(2)
}

func (m *MockTokenRepository) Transition(ctx context.Context, input repositories.TransitionInput) (*entities.Token, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) GetByID(ctx context.Context, id string) (*entities.Token, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) ListActiveBySession(ctx context.Context, sessionID string) ([]*entities.Token, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Token), args.Error(1)
}

func (m *MockTokenRepository) UpdateETAs(ctx context.Context, updates []repositories.TokenETAUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockTokenRepository) CancelSessionTokens(ctx context.Context, sessionID string, actorID, actorRole, reason string) (int, error) {
	args := m.Called(ctx, sessionID, actorID, actorRole, reason)
	return args.Int(0), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error) {
	args := m.Called(ctx, patientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

type MockConsultationRepository struct {
	mock.Mock
}

func (m *MockConsultationRepository) EnsureForToken(ctx context.Context, input repositories.EnsureConsultationInput) (*entities.Consultation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Consultation), args.Error(1)
}

func (m *MockConsultationRepository) CompleteForToken(ctx context.Context, tokenID string, completedAt time.Time) error {
	args := m.Called(ctx, tokenID, completedAt)
	return args.Error(0)
}

func (m *MockConsultationRepository) ListRecentCompleted(ctx context.Context, sessionID string, since time.Time, limit int) ([]*entities.Consultation, error) {
	args := m.Called(ctx, sessionID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Consultation), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.QueueEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) Verify(ctx context.Context, input providers.VerifyPaymentInput) (*entities.PaymentVerification, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentVerification), args.Error(1)
}

type MockLedgerProvider struct {
	mock.Mock
}

func (m *MockLedgerProvider) RecordCredit(ctx context.Context, credit *entities.LedgerCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

type MockRecalculator struct {
	mock.Mock
}

func (m *MockRecalculator) Recalculate(ctx context.Context, sessionID string) (*entities.QueueState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.QueueState), args.Error(1)
}

func (m *MockRecalculator) InvalidateSessionState(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendBookingConfirmation(ctx context.Context, session *entities.Session, token *entities.Token, booking *entities.Booking) {
	m.Called(ctx, session, token, booking)
}

func (m *MockNotifier) SendTokenNotification(ctx context.Context, session *entities.Session, token *entities.Token, notificationType entities.NotificationType) {
	m.Called(ctx, session, token, notificationType)
}

type MockNotificationTrigger struct {
	mock.Mock
}

func (m *MockNotificationTrigger) Trigger(ctx context.Context, request *entities.NotificationRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}
