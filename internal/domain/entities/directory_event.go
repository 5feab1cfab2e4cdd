package entities

import (
	"time"

	"github.com/google/uuid"
)

// DirectoryEventType represents the kind of change made to reference data
type DirectoryEventType string

const (
	DirectoryEventTaxonomyUpdated DirectoryEventType = "taxonomy_updated"
	DirectoryEventProviderUpdated DirectoryEventType = "provider_updated"
)

// DirectoryEvent announces that taxonomy or provider records changed
type DirectoryEvent struct {
	ID        string             `json:"id"`
	EventType DirectoryEventType `json:"event_type"`
	EntityIDs []string           `json:"entity_ids,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewDirectoryEvent creates a new directory event
func NewDirectoryEvent(eventType DirectoryEventType, entityIDs []string) *DirectoryEvent {
	return &DirectoryEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		EntityIDs: entityIDs,
		Timestamp: time.Now(),
	}
}
