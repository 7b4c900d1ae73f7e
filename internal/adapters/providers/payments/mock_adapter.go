package payments

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

// MockAdapter implements PaymentProvider for development environments without
// a gateway: every reference verifies successfully, echoing the request. A
// non-zero Amount overrides the expected amount, which lets tests exercise
// mismatch handling.
type MockAdapter struct {
	Amount   float64
	Currency string
}

// NewMockAdapter creates a new mock payment adapter
func NewMockAdapter(amount float64, currency string) providers.PaymentProvider {
	return &MockAdapter{
		Amount:   amount,
		Currency: currency,
	}
}

// Verify reports a successful verification mirroring the request
func (a *MockAdapter) Verify(ctx context.Context, input providers.VerifyPaymentInput) (*entities.PaymentVerification, error) {
	amount := a.Amount
	if amount == 0 {
		amount = input.ExpectedAmount
	}
	currency := a.Currency
	if currency == "" {
		currency = input.ExpectedCurrency
	}

	return &entities.PaymentVerification{
		Reference:  input.Reference,
		Status:     entities.PaymentVerificationSuccess,
		PatientID:  input.PatientID,
		ProviderID: input.ProviderID,
		SessionID:  input.SessionID,
		Amount:     amount,
		Currency:   currency,
	}, nil
}
