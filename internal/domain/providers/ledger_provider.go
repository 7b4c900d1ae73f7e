package providers

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// LedgerProvider defines the interface for the external wallet/ledger
// service. Credits are recorded once per successful issuance, best-effort:
// a failure is logged and never rolls back the booking.
type LedgerProvider interface {
	// RecordCredit records a revenue-share entry for the provider
	RecordCredit(ctx context.Context, credit *entities.LedgerCredit) error
}
