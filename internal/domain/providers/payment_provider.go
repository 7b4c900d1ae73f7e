package providers

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// VerifyPaymentInput identifies the payment the booking claims to have made
type VerifyPaymentInput struct {
	Reference  string
	PatientID  string
	ProviderID string
	SessionID  string

	// ExpectedAmount and ExpectedCurrency let the gateway cross-check the
	// charge against the configured consultation fee
	ExpectedAmount   float64
	ExpectedCurrency string
}

// PaymentProvider defines the interface for the external payment gateway.
// Only verification is consumed here; capture happens upstream.
type PaymentProvider interface {
	// Verify looks up a payment reference and returns the gateway's view
	// of it. A transport failure is distinct from a failed verification.
	Verify(ctx context.Context, input VerifyPaymentInput) (*entities.PaymentVerification, error)
}
