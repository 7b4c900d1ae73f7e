package repositories

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// BookingRepository defines read access to booking records. Bookings are
// created and status-synced by the token ledger inside its transactions;
// this interface only serves the read side.
type BookingRepository interface {
	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// ListByPatient retrieves a patient's bookings, newest first
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error)
}
