package entities

import (
	"time"

	"github.com/google/uuid"
)

// QueueEventType represents the type of queue state-change event
type QueueEventType string

const (
	QueueEventTokenIssued    QueueEventType = "token:issued"
	QueueEventTokenCalled    QueueEventType = "token:called"
	QueueEventTokenVisited   QueueEventType = "token:visited"
	QueueEventTokenCompleted QueueEventType = "token:completed"
	QueueEventTokenSkipped   QueueEventType = "token:skipped"
	QueueEventTokenRecalled  QueueEventType = "token:recalled"
	QueueEventTokenNoShow    QueueEventType = "token:no_show"
	QueueEventTokenCancelled QueueEventType = "token:cancelled"
	QueueEventSessionUpdate  QueueEventType = "session:update"
	QueueEventSessionPaused  QueueEventType = "session:paused"
	QueueEventSessionResumed QueueEventType = "session:resumed"
)

// QueueEvent represents a real-time state-change event for a session queue.
// Payload carries the minimal data a live view needs to refresh itself.
type QueueEvent struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	EventType QueueEventType         `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewQueueEvent creates a new queue event
func NewQueueEvent(sessionID string, eventType QueueEventType, payload map[string]interface{}) *QueueEvent {
	return &QueueEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
