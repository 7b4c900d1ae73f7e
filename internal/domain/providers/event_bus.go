package providers

import (
	"context"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to queue
// state-change events. Downstream real-time distribution (websockets, SSE)
// lives outside this engine; publishing is best-effort.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.QueueEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelSessionPrefix is the prefix for session-specific channels
const EventChannelSessionPrefix = "session:"

// GetSessionChannel returns the channel name for a specific session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
