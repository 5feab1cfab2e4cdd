package providers

import (
	"context"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DirectoryEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DirectoryEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelTaxonomyUpdates carries condition taxonomy changes
	EventChannelTaxonomyUpdates = "taxonomy:updates"

	// EventChannelProviderUpdates carries provider directory changes
	EventChannelProviderUpdates = "provider:updates"
)
