package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

// GatewayAdapter implements PaymentProvider against an HTTP payment gateway.
// Only verification is consumed; capture happens upstream of this engine.
type GatewayAdapter struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewGatewayAdapter creates a new payment gateway adapter
func NewGatewayAdapter(baseURL, apiKey string) providers.PaymentProvider {
	return &GatewayAdapter{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// Verify looks up a payment reference with the gateway
func (a *GatewayAdapter) Verify(ctx context.Context, input providers.VerifyPaymentInput) (*entities.PaymentVerification, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s/verify", a.baseURL, url.PathEscape(input.Reference))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The gateway has no record of this reference; report a failed
		// verification rather than a transport error.
		return &entities.PaymentVerification{
			Reference: input.Reference,
			Status:    entities.PaymentVerificationFailed,
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway error: status %d", resp.StatusCode)
	}

	var result struct {
		Reference      string  `json:"reference"`
		Status         string  `json:"status"`
		PatientID      string  `json:"patient_id"`
		ProviderID     string  `json:"provider_id"`
		SessionID      string  `json:"session_id"`
		Amount         float64 `json:"amount"`
		Currency       string  `json:"currency"`
		CommissionRate float64 `json:"commission_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &entities.PaymentVerification{
		Reference:      result.Reference,
		Status:         entities.PaymentVerificationStatus(result.Status),
		PatientID:      result.PatientID,
		ProviderID:     result.ProviderID,
		SessionID:      result.SessionID,
		Amount:         result.Amount,
		Currency:       result.Currency,
		CommissionRate: result.CommissionRate,
	}, nil
}
