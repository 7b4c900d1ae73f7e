package services

import (
	"context"
	"math"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

// IssueTokenRequest carries a booking request into the coordinator
type IssueTokenRequest struct {
	SessionID            string
	PatientID            string
	Priority             int
	PriorityReason       string
	DynamicBufferMinutes int
	PaymentReference     string
	Notes                string
	ActorID              string
	ActorRole            string
}

// BookingService coordinates token issuance: payment verification, the atomic
// token + booking write, and the best-effort side effects that follow commit
type BookingService struct {
	sessionRepo     repositories.SessionRepository
	tokenRepo       repositories.TokenRepository
	bookingRepo     repositories.BookingRepository
	paymentProvider providers.PaymentProvider
	ledgerProvider  providers.LedgerProvider
	eventBus        providers.EventBus
	recalculator    QueueRecalculator
	notifier        Notifier
	metrics         *observability.Metrics
	amountTolerance float64
	commissionRate  float64
}

// NewBookingService creates a new booking service. commissionRate is the
// role-based default applied when the payment verification carries no rate
// hint; amountTolerance absorbs rounding differences between the gateway and
// the configured consultation fee.
func NewBookingService(
	sessionRepo repositories.SessionRepository,
	tokenRepo repositories.TokenRepository,
	bookingRepo repositories.BookingRepository,
	paymentProvider providers.PaymentProvider,
	ledgerProvider providers.LedgerProvider,
	eventBus providers.EventBus,
	recalculator QueueRecalculator,
	notifier Notifier,
	metrics *observability.Metrics,
	amountTolerance float64,
	commissionRate float64,
) *BookingService {
	return &BookingService{
		sessionRepo:     sessionRepo,
		tokenRepo:       tokenRepo,
		bookingRepo:     bookingRepo,
		paymentProvider: paymentProvider,
		ledgerProvider:  ledgerProvider,
		eventBus:        eventBus,
		recalculator:    recalculator,
		notifier:        notifier,
		metrics:         metrics,
		amountTolerance: amountTolerance,
		commissionRate:  commissionRate,
	}
}

// IssueToken verifies the payment, then creates the token and its booking
// record in one atomic unit of work. Any precondition failure aborts with no
// partial writes. Side effects after commit (ledger credit, recalculation,
// event, confirmation notification) are best-effort and never fail the
// issued booking.
func (s *BookingService) IssueToken(ctx context.Context, request IssueTokenRequest) (*entities.Token, *entities.Booking, error) {
	if request.SessionID == "" {
		return nil, nil, apperrors.NewValidationError("A session id is required")
	}
	if request.PatientID == "" {
		return nil, nil, apperrors.NewValidationError("A patient id is required")
	}
	if request.Priority < 0 {
		return nil, nil, apperrors.NewValidationError("Priority must not be negative")
	}
	if request.PaymentReference == "" {
		return nil, nil, apperrors.NewPaymentInvalidError("A payment reference is required")
	}

	session, err := s.sessionRepo.GetByID(ctx, request.SessionID)
	if err != nil {
		return nil, nil, err
	}

	// Cheap pre-checks; the token ledger re-validates all of them under the
	// session row lock.
	if !session.AcceptsBookings() {
		return nil, nil, apperrors.NewInvalidStateError("Session is no longer accepting bookings")
	}
	if !session.HasAvgServiceTime() {
		return nil, nil, apperrors.NewInvalidStateError("Average service time is not configured for this session")
	}

	verification, err := s.verifyPayment(ctx, session, request)
	if err != nil {
		return nil, nil, err
	}

	commissionRate := verification.CommissionRate
	if commissionRate <= 0 {
		commissionRate = s.commissionRate
	}
	grossAmount := verification.Amount
	commissionAmount := roundMoney(grossAmount * commissionRate / 100)
	netAmount := roundMoney(grossAmount - commissionAmount)

	token, booking, err := s.tokenRepo.Issue(ctx, repositories.IssueTokenInput{
		SessionID:            request.SessionID,
		PatientID:            request.PatientID,
		Priority:             request.Priority,
		PriorityReason:       request.PriorityReason,
		DynamicBufferMinutes: request.DynamicBufferMinutes,
		Notes:                request.Notes,
		ActorID:              request.ActorID,
		ActorRole:            request.ActorRole,
		PaymentReference:     verification.Reference,
		GrossAmount:          grossAmount,
		CommissionRate:       commissionRate,
		CommissionAmount:     commissionAmount,
		NetAmount:            netAmount,
		Currency:             verification.Currency,
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterIssue(ctx, session, token, booking)

	return token, booking, nil
}

// GetBooking retrieves a booking by id
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*entities.Booking, error) {
	if bookingID == "" {
		return nil, apperrors.NewValidationError("A booking id is required")
	}
	return s.bookingRepo.GetByID(ctx, bookingID)
}

// ListPatientBookings retrieves a patient's bookings, newest first
func (s *BookingService) ListPatientBookings(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error) {
	if patientID == "" {
		return nil, apperrors.NewValidationError("A patient id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.bookingRepo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *BookingService) verifyPayment(ctx context.Context, session *entities.Session, request IssueTokenRequest) (*entities.PaymentVerification, error) {
	verification, err := s.paymentProvider.Verify(ctx, providers.VerifyPaymentInput{
		Reference:        request.PaymentReference,
		PatientID:        request.PatientID,
		ProviderID:       session.ProviderID,
		SessionID:        session.ID,
		ExpectedAmount:   session.ConsultationFee,
		ExpectedCurrency: session.Currency,
	})
	if err != nil {
		return nil, apperrors.NewExternalError("Payment verification is unavailable", err)
	}

	if verification.Status != entities.PaymentVerificationSuccess {
		return nil, apperrors.NewPaymentInvalidError("Payment has not been completed")
	}
	if verification.PatientID != request.PatientID {
		return nil, apperrors.NewPaymentInvalidError("Payment does not belong to this patient")
	}
	if verification.ProviderID != session.ProviderID {
		return nil, apperrors.NewPaymentInvalidError("Payment does not match this provider")
	}
	if verification.SessionID != "" && verification.SessionID != session.ID {
		return nil, apperrors.NewPaymentInvalidError("Payment does not match this session")
	}
	if math.Abs(verification.Amount-session.ConsultationFee) > s.amountTolerance {
		return nil, apperrors.NewPaymentInvalidError("Payment amount does not match the consultation fee")
	}

	return verification, nil
}

// afterIssue runs the post-commit side effects. The booking has already
// committed; failures here are logged and swallowed.
func (s *BookingService) afterIssue(ctx context.Context, session *entities.Session, token *entities.Token, booking *entities.Booking) {
	logger := observability.LoggerFromContext(ctx)

	if s.metrics != nil {
		observability.RecordTokenIssued(ctx, s.metrics, session.ID)
	}

	if err := s.ledgerProvider.RecordCredit(ctx, &entities.LedgerCredit{
		ProviderID:       session.ProviderID,
		PatientID:        token.PatientID,
		BookingID:        booking.ID,
		GrossAmount:      booking.GrossAmount,
		CommissionRate:   booking.CommissionRate,
		CommissionAmount: booking.CommissionAmount,
		NetAmount:        booking.NetAmount,
		Currency:         booking.Currency,
	}); err != nil {
		logger.Error().Err(err).Str("booking_id", booking.ID).Msg("Failed to record ledger credit")
	}

	if _, err := s.recalculator.Recalculate(ctx, session.ID); err != nil {
		logger.Error().Err(err).Str("session_id", session.ID).Msg("Failed to recalculate queue state after issuance")
	}

	if s.eventBus != nil {
		event := entities.NewQueueEvent(session.ID, entities.QueueEventTokenIssued, map[string]interface{}{
			"token_id":     token.ID,
			"token_number": token.TokenNumber,
			"patient_id":   token.PatientID,
			"booking_id":   booking.ID,
		})
		if err := s.eventBus.Publish(ctx, providers.GetSessionChannel(session.ID), event); err != nil {
			logger.Error().Err(err).Str("session_id", session.ID).Msg("Failed to publish token issued event")
		}
	}

	s.notifier.SendBookingConfirmation(ctx, session, token, booking)
}

func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
