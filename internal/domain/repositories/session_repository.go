package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// SessionRepository defines the interface for session record operations
type SessionRepository interface {
	// Create persists a new session
	Create(ctx context.Context, session *entities.Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*entities.Session, error)

	// Update persists mutable session fields (status, timing, counters,
	// pause metadata, average service time)
	Update(ctx context.Context, session *entities.Session) error

	// SetPaused toggles the pause flag and metadata without touching the
	// rest of the record
	SetPaused(ctx context.Context, id string, paused bool, reason string, resumeAt *time.Time) error

	// ListByProvider retrieves sessions owned by a provider
	ListByProvider(ctx context.Context, providerID string, filter SessionFilter) ([]*entities.Session, error)
}

// SessionFilter defines filters for listing sessions
type SessionFilter struct {
	Status entities.SessionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
