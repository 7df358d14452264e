package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event being published
type EventType string

const (
	// File lifecycle events
	EventFileUploaded EventType = "file.uploaded"
	EventFileDeleted  EventType = "file.deleted"

	// Folder events
	EventFolderDeleted EventType = "folder.deleted"

	// Sharing events
	EventFileShared       EventType = "file.shared"
	EventFileShareRevoked EventType = "file.share_revoked"

	// Billing events
	EventInvoiceCreated     EventType = "invoice.created"
	EventBillingRunFinished EventType = "billing.run_finished"
)

// Event represents a single event in the system
type Event struct {
	// ID is a unique identifier for this event (for idempotency)
	ID string

	// Type is the event type
	Type EventType

	// Timestamp is when the event occurred
	Timestamp time.Time

	// UserID is the user this event belongs to (empty for system events)
	UserID string

	// Payload contains event-specific data
	Payload map[string]interface{}
}

// NewEvent creates a new event with the given type and payload
func NewEvent(eventType EventType, userID string, payload map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Payload:   payload,
	}
}
