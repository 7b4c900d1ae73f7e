package entities

// PaymentVerificationStatus represents the outcome reported by the payment
// gateway for a payment reference
type PaymentVerificationStatus string

const (
	PaymentVerificationSuccess PaymentVerificationStatus = "success"
	PaymentVerificationFailed  PaymentVerificationStatus = "failed"
	PaymentVerificationPending PaymentVerificationStatus = "pending"
)

// PaymentVerification is the gateway's answer for a payment reference.
// The booking coordinator treats anything other than a full match as a hard
// failure.
type PaymentVerification struct {
	Reference      string                    `json:"reference"`
	Status         PaymentVerificationStatus `json:"status"`
	PatientID      string                    `json:"patient_id"`
	ProviderID     string                    `json:"provider_id"`
	SessionID      string                    `json:"session_id,omitempty"`
	Amount         float64                   `json:"amount"`
	Currency       string                    `json:"currency"`
	CommissionRate float64                   `json:"commission_rate,omitempty"`
}

// LedgerCredit is one revenue-share entry recorded against the provider's
// wallet after a successful issuance. Recording is best-effort.
type LedgerCredit struct {
	ProviderID       string  `json:"provider_id"`
	PatientID        string  `json:"patient_id"`
	BookingID        string  `json:"booking_id"`
	GrossAmount      float64 `json:"gross_amount"`
	CommissionRate   float64 `json:"commission_rate"`
	CommissionAmount float64 `json:"commission_amount"`
	NetAmount        float64 `json:"net_amount"`
	Currency         string  `json:"currency"`
}
