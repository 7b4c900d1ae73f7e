package ledger

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

// MockAdapter implements LedgerProvider for environments without a wallet
// service; credits are logged and dropped
type MockAdapter struct{}

// NewMockAdapter creates a new mock ledger adapter
func NewMockAdapter() providers.LedgerProvider {
	return &MockAdapter{}
}

// RecordCredit logs the credit instead of recording it
func (a *MockAdapter) RecordCredit(ctx context.Context, credit *entities.LedgerCredit) error {
	log.Info().
		Str("provider_id", credit.ProviderID).
		Str("booking_id", credit.BookingID).
		Float64("net_amount", credit.NetAmount).
		Str("currency", credit.Currency).
		Msg("Mock ledger credit recorded")
	return nil
}
