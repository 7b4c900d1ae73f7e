package payments

import (
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
	"github.com/zatekoja/Clinicqueuedesign/pkg/config"
)

// NewPaymentProvider creates a payment provider from configuration. Without a
// gateway URL the mock verifier is used, which accepts every reference; never
// run it against real sessions.
func NewPaymentProvider(cfg *config.PaymentConfig, mockAmount float64, mockCurrency string) providers.PaymentProvider {
	if cfg.Provider == "mock" || cfg.GatewayURL == "" {
		return NewMockAdapter(mockAmount, mockCurrency)
	}
	return NewGatewayAdapter(cfg.GatewayURL, cfg.APIKey)
}
