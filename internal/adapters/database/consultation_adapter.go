package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

var consultationColumns = []interface{}{
	"id", "token_id", "session_id", "provider_id", "patient_id", "booking_id",
	"status", "started_at", "completed_at", "created_at", "updated_at",
}

// ConsultationAdapter implements the ConsultationRepository interface. A
// unique index on token_id gives EnsureForToken its idempotent semantics.
type ConsultationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewConsultationAdapter creates a new consultation adapter
func NewConsultationAdapter(client *postgres.Client) repositories.ConsultationRepository {
	return &ConsultationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureForToken creates the consultation for a token if it does not exist
// yet and returns the record either way
func (a *ConsultationAdapter) EnsureForToken(ctx context.Context, input repositories.EnsureConsultationInput) (*entities.Consultation, error) {
	now := time.Now().UTC()

	_, err := a.client.DB().ExecContext(ctx, `
		INSERT INTO consultations (
			id, token_id, session_id, provider_id, patient_id, booking_id,
			status, started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id) DO NOTHING`,
		uuid.New().String(), input.TokenID, input.SessionID, input.ProviderID,
		input.PatientID, input.BookingID, entities.ConsultationStatusOpen,
		input.StartedAt, now, now,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to ensure consultation", err)
	}

	return a.getByTokenID(ctx, input.TokenID)
}

// CompleteForToken marks the token's consultation completed. A missing
// consultation is not an error; completion mirrors the token lifecycle
// best-effort.
func (a *ConsultationAdapter) CompleteForToken(ctx context.Context, tokenID string, completedAt time.Time) error {
	query, args, err := a.db.Update("consultations").
		Set(goqu.Record{
			"status":       entities.ConsultationStatusCompleted,
			"completed_at": completedAt,
			"updated_at":   time.Now().UTC(),
		}).
		Where(goqu.Ex{"token_id": tokenID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build complete query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to complete consultation", err)
	}

	return nil
}

// ListRecentCompleted retrieves up to limit completed consultations of a
// session started at or after since, most recent first
func (a *ConsultationAdapter) ListRecentCompleted(ctx context.Context, sessionID string, since time.Time, limit int) ([]*entities.Consultation, error) {
	ds := a.db.Select(consultationColumns...).
		From("consultations").
		Where(goqu.Ex{
			"session_id": sessionID,
			"status":     entities.ConsultationStatusCompleted,
		}).
		Where(goqu.C("started_at").Gte(since)).
		Order(goqu.I("completed_at").Desc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list consultations", err)
	}
	defer rows.Close()

	var consultations []*entities.Consultation
	for rows.Next() {
		consultation, err := scanConsultation(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan consultation", err)
		}
		consultations = append(consultations, consultation)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list consultations", err)
	}

	return consultations, nil
}

func (a *ConsultationAdapter) getByTokenID(ctx context.Context, tokenID string) (*entities.Consultation, error) {
	query, args, err := a.db.Select(consultationColumns...).
		From("consultations").
		Where(goqu.Ex{"token_id": tokenID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	consultation, err := scanConsultation(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Consultation not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get consultation", err)
	}

	return consultation, nil
}

func scanConsultation(row rowScanner) (*entities.Consultation, error) {
	consultation := &entities.Consultation{}
	var (
		bookingID   sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&consultation.ID,
		&consultation.TokenID,
		&consultation.SessionID,
		&consultation.ProviderID,
		&consultation.PatientID,
		&bookingID,
		&consultation.Status,
		&consultation.StartedAt,
		&completedAt,
		&consultation.CreatedAt,
		&consultation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bookingID.Valid {
		consultation.BookingID = &bookingID.String
	}
	consultation.CompletedAt = nullTimePtr(completedAt)

	return consultation, nil
}
