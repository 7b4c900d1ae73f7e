package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

var bookingColumns = []interface{}{
	"id", "session_id", "patient_id", "provider_id", "token_number",
	"scheduled_at", "status", "payment_reference", "gross_amount",
	"commission_rate", "commission_amount", "net_amount", "currency",
	"eta", "notes", "created_at", "updated_at",
}

// BookingAdapter implements the BookingRepository interface. Bookings are
// written by the token adapter inside its transactions; this adapter serves
// the read side only.
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Booking not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}

	return booking, nil
}

// ListByPatient retrieves a patient's bookings, newest first
func (a *BookingAdapter) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*entities.Booking, error) {
	ds := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	var bookings []*entities.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}

	return bookings, nil
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var (
		eta   sql.NullTime
		notes sql.NullString
	)

	err := row.Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.PatientID,
		&booking.ProviderID,
		&booking.TokenNumber,
		&booking.ScheduledAt,
		&booking.Status,
		&booking.PaymentReference,
		&booking.GrossAmount,
		&booking.CommissionRate,
		&booking.CommissionAmount,
		&booking.NetAmount,
		&booking.Currency,
		&eta,
		&notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.ETA = nullTimePtr(eta)
	booking.Notes = notes.String

	return booking, nil
}
