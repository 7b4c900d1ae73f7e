package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
	"github.com/zatekoja/Clinicqueuedesign/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Clinicqueuedesign/pkg/errors"
)

var tokenColumns = []interface{}{
	"id", "session_id", "patient_id", "booking_id", "token_number",
	"priority", "priority_reason", "status", "eta", "recall_count",
	"dynamic_buffer_minutes", "notes", "issued_at", "called_at", "visited_at",
	"completed_at", "skipped_at", "recalled_at", "no_show_at", "cancelled_at",
	"history", "created_at", "updated_at",
}

// transitionTimestampColumns maps each target status to the timestamp column
// stamped when the token enters it
var transitionTimestampColumns = map[entities.TokenStatus]string{
	entities.TokenStatusCalled:    "called_at",
	entities.TokenStatusVisited:   "visited_at",
	entities.TokenStatusCompleted: "completed_at",
	entities.TokenStatusSkipped:   "skipped_at",
	entities.TokenStatusRecalled:  "recalled_at",
	entities.TokenStatusNoShow:    "no_show_at",
	entities.TokenStatusCancelled: "cancelled_at",
}

// TokenAdapter implements the TokenRepository interface. Issue, Transition,
// and CancelSessionTokens run inside transactions that lock the session row
// first, so capacity checks, token numbering, and counter updates are
// serialized per session. Partial unique indexes on (session_id, token_number)
// and on (session_id, patient_id) over non-cancelled tokens back the
// application checks as a second line of defense.
type TokenAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTokenAdapter creates a new token adapter
func NewTokenAdapter(client *postgres.Client) repositories.TokenRepository {
	return &TokenAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Issue assigns the next token number and creates the token together with its
// booking record in one transaction
func (a *TokenAdapter) Issue(ctx context.Context, input repositories.IssueTokenInput) (*entities.Token, *entities.Booking, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var (
		providerID      string
		startTime       time.Time
		status          entities.SessionStatus
		avgMinutes      int
		capacity        int
		nextTokenNumber int
		issuedCount     int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT provider_id, start_time, status, avg_service_minutes, capacity, next_token_number, issued_count
		FROM sessions
		WHERE id = $1
		FOR UPDATE`,
		input.SessionID,
	).Scan(&providerID, &startTime, &status, &avgMinutes, &capacity, &nextTokenNumber, &issuedCount)
	if err == sql.ErrNoRows {
		return nil, nil, apperrors.NewNotFoundError("Session not found")
	}
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to lock session", err)
	}

	if status.IsTerminal() {
		return nil, nil, apperrors.NewInvalidStateError("Session is no longer accepting bookings")
	}
	if avgMinutes <= 0 {
		return nil, nil, apperrors.NewInvalidStateError("Average service time is not configured for this session")
	}
	if issuedCount >= capacity {
		return nil, nil, apperrors.NewConflictError("Session is fully booked")
	}

	var duplicate bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tokens
			WHERE session_id = $1 AND patient_id = $2 AND status <> $3
		)`,
		input.SessionID, input.PatientID, entities.TokenStatusCancelled,
	).Scan(&duplicate)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to check for existing token", err)
	}
	if duplicate {
		return nil, nil, apperrors.NewConflictError("Patient already holds a token in this session")
	}

	now := time.Now().UTC()
	token := &entities.Token{
		ID:                   uuid.New().String(),
		SessionID:            input.SessionID,
		PatientID:            input.PatientID,
		BookingID:            uuid.New().String(),
		TokenNumber:          nextTokenNumber,
		Priority:             input.Priority,
		PriorityReason:       input.PriorityReason,
		Status:               entities.TokenStatusWaiting,
		DynamicBufferMinutes: input.DynamicBufferMinutes,
		Notes:                input.Notes,
		IssuedAt:             now,
		History: []entities.TokenStatusChange{{
			Status:    entities.TokenStatusWaiting,
			ActorID:   input.ActorID,
			ActorRole: input.ActorRole,
			Notes:     input.Notes,
			At:        now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	booking := &entities.Booking{
		ID:               token.BookingID,
		SessionID:        input.SessionID,
		PatientID:        input.PatientID,
		ProviderID:       providerID,
		TokenNumber:      token.TokenNumber,
		ScheduledAt:      startTime,
		Status:           entities.BookingStatusConfirmed,
		PaymentReference: input.PaymentReference,
		GrossAmount:      input.GrossAmount,
		CommissionRate:   input.CommissionRate,
		CommissionAmount: input.CommissionAmount,
		NetAmount:        input.NetAmount,
		Currency:         input.Currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (
			id, session_id, patient_id, provider_id, token_number, scheduled_at,
			status, payment_reference, gross_amount, commission_rate,
			commission_amount, net_amount, currency, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		booking.ID, booking.SessionID, booking.PatientID, booking.ProviderID,
		booking.TokenNumber, booking.ScheduledAt, booking.Status,
		booking.PaymentReference, booking.GrossAmount, booking.CommissionRate,
		booking.CommissionAmount, booking.NetAmount, booking.Currency,
		input.Notes, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return nil, nil, mapTokenWriteError(err, "failed to create booking")
	}

	history, err := json.Marshal(token.History)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to encode token history", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tokens (
			id, session_id, patient_id, booking_id, token_number, priority,
			priority_reason, status, recall_count, dynamic_buffer_minutes,
			notes, issued_at, history, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12, $13, $14)`,
		token.ID, token.SessionID, token.PatientID, token.BookingID,
		token.TokenNumber, token.Priority, token.PriorityReason, token.Status,
		token.DynamicBufferMinutes, token.Notes, token.IssuedAt, history,
		token.CreatedAt, token.UpdatedAt,
	)
	if err != nil {
		return nil, nil, mapTokenWriteError(err, "failed to create token")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET next_token_number = next_token_number + 1,
		    issued_count = issued_count + 1,
		    updated_at = $2
		WHERE id = $1`,
		input.SessionID, now,
	)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to advance token counter", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapTokenWriteError(err, "failed to commit issuance")
	}

	return token, booking, nil
}

// Transition applies one guarded status change in a transaction. The session
// row is locked before the token row so concurrent transitions and issuances
// for the same session serialize in a single order.
func (a *TokenAdapter) Transition(ctx context.Context, input repositories.TransitionInput) (*entities.Token, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var sessionID string
	err = tx.QueryRowContext(ctx, `SELECT session_id FROM tokens WHERE id = $1`, input.TokenID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Token not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load token", err)
	}

	_, err = tx.ExecContext(ctx, `SELECT 1 FROM sessions WHERE id = $1 FOR UPDATE`, sessionID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock session", err)
	}

	token, err := a.lockToken(ctx, tx, input.TokenID)
	if err != nil {
		return nil, err
	}

	if !statusAllowed(token.Status, input.FromStatuses) {
		return nil, apperrors.NewInvalidStateError(
			fmt.Sprintf("Token cannot move from %s to %s", token.Status, input.ToStatus))
	}
	if input.ToStatus == entities.TokenStatusRecalled && token.RecallCount >= input.MaxRecalls {
		return nil, apperrors.NewConflictError("Maximum recalls reached for this token")
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	change := entities.TokenStatusChange{
		Status:    input.ToStatus,
		ActorID:   input.ActorID,
		ActorRole: input.ActorRole,
		Notes:     input.Notes,
		At:        occurredAt,
	}
	changeJSON, err := json.Marshal([]entities.TokenStatusChange{change})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode history entry", err)
	}

	timestampColumn := transitionTimestampColumns[input.ToStatus]
	recallIncrement := 0
	if input.ToStatus == entities.TokenStatusRecalled {
		recallIncrement = 1
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE tokens
		SET status = $2,
		    %s = $3,
		    recall_count = recall_count + $4,
		    history = history || $5::jsonb,
		    updated_at = $3
		WHERE id = $1`, pq.QuoteIdentifier(timestampColumn)),
		token.ID, input.ToStatus, occurredAt, recallIncrement, changeJSON,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update token", err)
	}

	if err := a.applySessionEffects(ctx, tx, sessionID, token.TokenNumber, input, occurredAt); err != nil {
		return nil, err
	}

	if input.SyncBookingStatus && token.BookingID != "" {
		if bookingStatus, ok := entities.BookingStatusForToken(input.ToStatus); ok {
			_, err = tx.ExecContext(ctx, `
				UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`,
				token.BookingID, bookingStatus, occurredAt,
			)
			if err != nil {
				return nil, apperrors.NewInternalError("failed to sync booking status", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit transition", err)
	}

	token.Status = input.ToStatus
	token.RecallCount += recallIncrement
	token.History = append(token.History, change)
	token.UpdatedAt = occurredAt
	stampTransitionTime(token, input.ToStatus, occurredAt)

	return token, nil
}

// GetByID retrieves a token by ID
func (a *TokenAdapter) GetByID(ctx context.Context, id string) (*entities.Token, error) {
	query, args, err := a.db.Select(tokenColumns...).
		From("tokens").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	token, err := scanToken(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Token not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get token", err)
	}

	return token, nil
}

// ListActiveBySession retrieves every non-terminal token of a session ordered
// by token number
func (a *TokenAdapter) ListActiveBySession(ctx context.Context, sessionID string) ([]*entities.Token, error) {
	query, args, err := a.db.Select(tokenColumns...).
		From("tokens").
		Where(goqu.Ex{
			"session_id": sessionID,
			"status":     entities.ActiveTokenStatuses(),
		}).
		Order(goqu.I("token_number").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list tokens", err)
	}
	defer rows.Close()

	var tokens []*entities.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan token", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list tokens", err)
	}

	return tokens, nil
}

// UpdateETAs persists recalculated ETAs for tokens and their bookings.
// Callers pass only the tokens whose ETA actually changed.
func (a *TokenAdapter) UpdateETAs(ctx context.Context, updates []repositories.TokenETAUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, update := range updates {
		_, err = tx.ExecContext(ctx, `
			UPDATE tokens SET eta = $2, updated_at = $3 WHERE id = $1`,
			update.TokenID, update.ETA, now,
		)
		if err != nil {
			return apperrors.NewInternalError("failed to update token eta", err)
		}

		if update.BookingID == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET eta = $2, updated_at = $3 WHERE id = $1`,
			update.BookingID, update.ETA, now,
		)
		if err != nil {
			return apperrors.NewInternalError("failed to update booking eta", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit eta updates", err)
	}

	return nil
}

// CancelSessionTokens force-cancels every non-terminal token of the session,
// mirrors the cancellations onto bookings, and marks the session cancelled,
// all in one transaction
func (a *TokenAdapter) CancelSessionTokens(ctx context.Context, sessionID string, actorID, actorRole, reason string) (int, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var status entities.SessionStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, sessionID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return 0, apperrors.NewNotFoundError("Session not found")
	}
	if err != nil {
		return 0, apperrors.NewInternalError("failed to lock session", err)
	}
	if status.IsTerminal() {
		return 0, apperrors.NewInvalidStateError("Session has already ended")
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, booking_id FROM tokens
		WHERE session_id = $1 AND status = ANY($2)
		FOR UPDATE`,
		sessionID, pq.Array(tokenStatusStrings(entities.ActiveTokenStatuses())),
	)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to list active tokens", err)
	}

	var tokenIDs, bookingIDs []string
	for rows.Next() {
		var tokenID, bookingID string
		if err := rows.Scan(&tokenID, &bookingID); err != nil {
			rows.Close()
			return 0, apperrors.NewInternalError("failed to scan token", err)
		}
		tokenIDs = append(tokenIDs, tokenID)
		bookingIDs = append(bookingIDs, bookingID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperrors.NewInternalError("failed to list active tokens", err)
	}

	now := time.Now().UTC()

	if len(tokenIDs) > 0 {
		changeJSON, err := json.Marshal([]entities.TokenStatusChange{{
			Status:    entities.TokenStatusCancelled,
			ActorID:   actorID,
			ActorRole: actorRole,
			Notes:     reason,
			At:        now,
		}})
		if err != nil {
			return 0, apperrors.NewInternalError("failed to encode history entry", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE tokens
			SET status = $2,
			    cancelled_at = $3,
			    history = history || $4::jsonb,
			    updated_at = $3
			WHERE id = ANY($1)`,
			pq.Array(tokenIDs), entities.TokenStatusCancelled, now, changeJSON,
		)
		if err != nil {
			return 0, apperrors.NewInternalError("failed to cancel tokens", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET status = $2, updated_at = $3 WHERE id = ANY($1)`,
			pq.Array(bookingIDs), entities.BookingStatusCancelled, now,
		)
		if err != nil {
			return 0, apperrors.NewInternalError("failed to cancel bookings", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET status = $2, paused = FALSE, updated_at = $3 WHERE id = $1`,
		sessionID, entities.SessionStatusCancelled, now,
	)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to cancel session", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewInternalError("failed to commit cancellation", err)
	}

	return len(tokenIDs), nil
}

// applySessionEffects moves the current-token pointer and bumps the session
// counter that corresponds to the target status
func (a *TokenAdapter) applySessionEffects(ctx context.Context, tx *sql.Tx, sessionID string, tokenNumber int, input repositories.TransitionInput, occurredAt time.Time) error {
	sets := []string{"updated_at = $2"}
	args := []interface{}{sessionID, occurredAt}

	if input.SetCurrentPointer {
		args = append(args, tokenNumber)
		sets = append(sets, fmt.Sprintf("current_token_number = $%d", len(args)))
	}

	switch input.ToStatus {
	case entities.TokenStatusCompleted:
		sets = append(sets, "completed_count = completed_count + 1")
	case entities.TokenStatusSkipped:
		sets = append(sets, "skipped_count = skipped_count + 1")
	case entities.TokenStatusNoShow:
		sets = append(sets, "no_show_count = no_show_count + 1")
	}

	query := fmt.Sprintf("UPDATE sessions SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update session effects", err)
	}
	return nil
}

func (a *TokenAdapter) lockToken(ctx context.Context, tx *sql.Tx, id string) (*entities.Token, error) {
	token, err := scanToken(tx.QueryRowContext(ctx, `
		SELECT id, session_id, patient_id, booking_id, token_number,
		       priority, priority_reason, status, eta, recall_count,
		       dynamic_buffer_minutes, notes, issued_at, called_at, visited_at,
		       completed_at, skipped_at, recalled_at, no_show_at, cancelled_at,
		       history, created_at, updated_at
		FROM tokens
		WHERE id = $1
		FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("Token not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to lock token", err)
	}
	return token, nil
}

func scanToken(row rowScanner) (*entities.Token, error) {
	token := &entities.Token{}
	var (
		priorityReason sql.NullString
		notes          sql.NullString
		eta            sql.NullTime
		calledAt       sql.NullTime
		visitedAt      sql.NullTime
		completedAt    sql.NullTime
		skippedAt      sql.NullTime
		recalledAt     sql.NullTime
		noShowAt       sql.NullTime
		cancelledAt    sql.NullTime
		history        []byte
	)

	err := row.Scan(
		&token.ID,
		&token.SessionID,
		&token.PatientID,
		&token.BookingID,
		&token.TokenNumber,
		&token.Priority,
		&priorityReason,
		&token.Status,
		&eta,
		&token.RecallCount,
		&token.DynamicBufferMinutes,
		&notes,
		&token.IssuedAt,
		&calledAt,
		&visitedAt,
		&completedAt,
		&skippedAt,
		&recalledAt,
		&noShowAt,
		&cancelledAt,
		&history,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	token.PriorityReason = priorityReason.String
	token.Notes = notes.String
	token.ETA = nullTimePtr(eta)
	token.CalledAt = nullTimePtr(calledAt)
	token.VisitedAt = nullTimePtr(visitedAt)
	token.CompletedAt = nullTimePtr(completedAt)
	token.SkippedAt = nullTimePtr(skippedAt)
	token.RecalledAt = nullTimePtr(recalledAt)
	token.NoShowAt = nullTimePtr(noShowAt)
	token.CancelledAt = nullTimePtr(cancelledAt)

	if len(history) > 0 {
		if err := json.Unmarshal(history, &token.History); err != nil {
			return nil, err
		}
	}

	return token, nil
}

func stampTransitionTime(token *entities.Token, status entities.TokenStatus, at time.Time) {
	switch status {
	case entities.TokenStatusCalled:
		token.CalledAt = &at
	case entities.TokenStatusVisited:
		token.VisitedAt = &at
	case entities.TokenStatusCompleted:
		token.CompletedAt = &at
	case entities.TokenStatusSkipped:
		token.SkippedAt = &at
	case entities.TokenStatusRecalled:
		token.RecalledAt = &at
	case entities.TokenStatusNoShow:
		token.NoShowAt = &at
	case entities.TokenStatusCancelled:
		token.CancelledAt = &at
	}
}

func statusAllowed(current entities.TokenStatus, allowed []entities.TokenStatus) bool {
	for _, status := range allowed {
		if current == status {
			return true
		}
	}
	return false
}

func tokenStatusStrings(statuses []entities.TokenStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// mapTokenWriteError converts unique-constraint violations into the conflict
// errors the coordinator reports: the partial unique indexes catch races the
// in-transaction checks could not see
func mapTokenWriteError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "patient") {
			return apperrors.NewConflictError("Patient already holds a token in this session")
		}
		return apperrors.NewConflictError("Session is fully booked")
	}
	return apperrors.NewInternalError(message, err)
}
