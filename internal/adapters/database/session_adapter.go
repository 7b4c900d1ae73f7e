package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

var sessionColumns = []interface{}{
	"id", "provider_id", "location_id", "start_time", "end_time",
	"avg_service_minutes", "buffer_minutes", "capacity", "consultation_fee",
	"currency", "status", "current_token_number", "next_token_number",
	"paused", "pause_reason", "resume_at", "issued_count", "completed_count",
	"skipped_count", "no_show_count", "created_at", "updated_at",
}

// SessionAdapter implements the SessionRepository interface
type SessionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSessionAdapter creates a new session adapter
func NewSessionAdapter(client *postgres.Client) repositories.SessionRepository {
	return &SessionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new session
func (a *SessionAdapter) Create(ctx context.Context, session *entities.Session) error {
	record := goqu.Record{
		"id":                   session.ID,
		"provider_id":          session.ProviderID,
		"location_id":          session.LocationID,
		"start_time":           session.StartTime,
		"end_time":             session.EndTime,
		"avg_service_minutes":  session.AvgServiceMinutes,
		"buffer_minutes":       session.BufferMinutes,
		"capacity":             session.Capacity,
		"consultation_fee":     session.ConsultationFee,
		"currency":             session.Currency,
		"status":               session.Status,
		"current_token_number": session.CurrentTokenNumber,
		"next_token_number":    session.NextTokenNumber,
		"paused":               session.Paused,
		"pause_reason":         session.PauseReason,
		"resume_at":            session.ResumeAt,
		"issued_count":         session.IssuedCount,
		"completed_count":      session.CompletedCount,
		"skipped_count":        session.SkippedCount,
		"no_show_count":        session.NoShowCount,
		"created_at":           session.CreatedAt,
		"updated_at":           session.UpdatedAt,
	}

	query, args, err := a.db.Insert("sessions").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create session", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (a *SessionAdapter) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	query, args, err := a.db.Select(sessionColumns...).
		From("sessions").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	session, err := scanSession(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Session not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get session", err)
	}

	return session, nil
}

// Update persists the mutable session fields
func (a *SessionAdapter) Update(ctx context.Context, session *entities.Session) error {
	record := goqu.Record{
		"start_time":           session.StartTime,
		"end_time":             session.EndTime,
		"avg_service_minutes":  session.AvgServiceMinutes,
		"buffer_minutes":       session.BufferMinutes,
		"capacity":             session.Capacity,
		"consultation_fee":     session.ConsultationFee,
		"currency":             session.Currency,
		"status":               session.Status,
		"current_token_number": session.CurrentTokenNumber,
		"paused":               session.Paused,
		"pause_reason":         session.PauseReason,
		"resume_at":            session.ResumeAt,
		"updated_at":           session.UpdatedAt,
	}

	query, args, err := a.db.Update("sessions").
		Set(record).
		Where(goqu.Ex{"id": session.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update session", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("Session not found")
	}

	return nil
}

// SetPaused toggles the pause flag and metadata. The session status follows
// the flag: paused sessions read as paused, resumed sessions go back to live.
func (a *SessionAdapter) SetPaused(ctx context.Context, id string, paused bool, reason string, resumeAt *time.Time) error {
	status := entities.SessionStatusLive
	if paused {
		status = entities.SessionStatusPaused
	}

	query, args, err := a.db.Update("sessions").
		Set(goqu.Record{
			"paused":       paused,
			"pause_reason": reason,
			"resume_at":    resumeAt,
			"status":       status,
			"updated_at":   time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build pause query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update pause state", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("Session not found")
	}

	return nil
}

// ListByProvider retrieves sessions owned by a provider
func (a *SessionAdapter) ListByProvider(ctx context.Context, providerID string, filter repositories.SessionFilter) ([]*entities.Session, error) {
	ds := a.db.Select(sessionColumns...).
		From("sessions").
		Where(goqu.Ex{"provider_id": providerID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("start_time").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("start_time").Lte(*filter.To))
	}

	ds = ds.Order(goqu.I("start_time").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []*entities.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list sessions", err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*entities.Session, error) {
	session := &entities.Session{}
	var (
		currentTokenNumber sql.NullInt64
		pauseReason        sql.NullString
		resumeAt           sql.NullTime
	)

	err := row.Scan(
		&session.ID,
		&session.ProviderID,
		&session.LocationID,
		&session.StartTime,
		&session.EndTime,
		&session.AvgServiceMinutes,
		&session.BufferMinutes,
		&session.Capacity,
		&session.ConsultationFee,
		&session.Currency,
		&session.Status,
		&currentTokenNumber,
		&session.NextTokenNumber,
		&session.Paused,
		&pauseReason,
		&resumeAt,
		&session.IssuedCount,
		&session.CompletedCount,
		&session.SkippedCount,
		&session.NoShowCount,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentTokenNumber.Valid {
		pointer := int(currentTokenNumber.Int64)
		session.CurrentTokenNumber = &pointer
	}
	session.PauseReason = pauseReason.String
	if resumeAt.Valid {
		session.ResumeAt = &resumeAt.Time
	}

	return session, nil
}
