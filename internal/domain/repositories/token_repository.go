package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// IssueTokenInput carries everything the ledger needs to create a token and
// its booking record in one atomic unit of work. Payment has already been
// verified by the caller; billing fields are derived from that verification.
type IssueTokenInput struct {
	SessionID            string
	PatientID            string
	Priority             int
	PriorityReason       string
	DynamicBufferMinutes int
	Notes                string
	ActorID              string
	ActorRole            string
	PaymentReference     string
	GrossAmount          float64
	CommissionRate       float64
	CommissionAmount     float64
	NetAmount            float64
	Currency             string
}

// TransitionInput describes one guarded status change. FromStatuses is
// enforced against the current row inside the transaction; a mismatch aborts
// with no writes.
type TransitionInput struct {
	TokenID      string
	FromStatuses []entities.TokenStatus
	ToStatus     entities.TokenStatus
	ActorID      string
	ActorRole    string
	Notes        string
	OccurredAt   time.Time

	// MaxRecalls bounds the recall counter when ToStatus is recalled;
	// exceeding it fails with a conflict and leaves the token unchanged.
	MaxRecalls int

	// SetCurrentPointer moves the session's current-token pointer to this
	// token (call and recall transitions)
	SetCurrentPointer bool

	// SyncBookingStatus mirrors the transition onto the linked booking
	// record when the target status maps to one
	SyncBookingStatus bool
}

// TokenETAUpdate is one persisted ETA change produced by a recalculation
type TokenETAUpdate struct {
	TokenID   string
	BookingID string
	ETA       time.Time
}

// TokenRepository defines the interface for the per-session token ledger.
// Issue and Transition are atomic: either every write inside them commits or
// none do. Uniqueness of (session, token number) and of one non-cancelled
// token per (session, patient) is also enforced by storage constraints as a
// second line of defense against races.
type TokenRepository interface {
	// Issue assigns the session's next token number and creates the token
	// (waiting, with an initial history entry) together with its booking
	// record, enforcing capacity and the duplicate-patient rule under a
	// session row lock.
	Issue(ctx context.Context, input IssueTokenInput) (*entities.Token, *entities.Booking, error)

	// Transition applies one guarded status change, stamps the transition
	// timestamp, appends a history entry, updates session counters and the
	// current-token pointer, and mirrors the booking status when asked.
	Transition(ctx context.Context, input TransitionInput) (*entities.Token, error)

	// GetByID retrieves a token by ID
	GetByID(ctx context.Context, id string) (*entities.Token, error)

	// ListActiveBySession retrieves every non-terminal token of a session
	// ordered by token number. Recalculation always starts from this
	// fresh read.
	ListActiveBySession(ctx context.Context, sessionID string) ([]*entities.Token, error)

	// UpdateETAs persists recalculated ETAs for the given tokens and their
	// linked bookings. Callers pass only tokens whose ETA actually changed.
	UpdateETAs(ctx context.Context, updates []TokenETAUpdate) error

	// CancelSessionTokens force-cancels every non-terminal token of the
	// session, mirrors the cancellations onto bookings, and marks the
	// session cancelled, all in one transaction. Returns the number of
	// cancelled tokens.
	CancelSessionTokens(ctx context.Context, sessionID string, actorID, actorRole, reason string) (int, error)
}
