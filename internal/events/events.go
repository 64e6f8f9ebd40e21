package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
)

// EventType names a product mutation. It doubles as the broker routing key.
type EventType string

const (
	ProductCreated EventType = "product.created"
	ProductUpdated EventType = "product.updated"
	ProductDeleted EventType = "product.deleted"
)

// ProductEvent is published once per committed product mutation.
// Snapshot is the persisted record for created and updated events and nil
// for deleted events.
type ProductEvent struct {
	// EventID is a unique identifier for this event
	EventID uuid.UUID `json:"event_id"`

	EventType EventType       `json:"event_type"`
	ProductID uuid.UUID       `json:"product_id"`
	Snapshot  *domain.Product `json:"snapshot,omitempty"`

	// Timestamp is when the event was created, in UTC
	Timestamp time.Time `json:"timestamp"`
}

// NewProductEvent builds an event about product. For ProductDeleted the
// snapshot is dropped.
func NewProductEvent(eventType EventType, product *domain.Product) *ProductEvent {
	event := &ProductEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		ProductID: product.ID,
		Timestamp: time.Now().UTC(),
	}
	if eventType != ProductDeleted {
		snapshot := *product
		event.Snapshot = &snapshot
	}
	return event
}

// NewProductDeletedEvent builds a deletion event for id.
func NewProductDeletedEvent(id uuid.UUID) *ProductEvent {
	return &ProductEvent{
		EventID:   uuid.New(),
		EventType: ProductDeleted,
		ProductID: id,
		Timestamp: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ProductEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ProductEvent) error
}

// Publisher sends an encoded message to a broker under topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// FailureRecorder counts events that could not be delivered.
type FailureRecorder interface {
	RecordPublishFailure(eventType string)
}

// FailureRecorderFunc adapts a function to FailureRecorder.
type FailureRecorderFunc func(eventType string)

// RecordPublishFailure calls f.
func (f FailureRecorderFunc) RecordPublishFailure(eventType string) { f(eventType) }

type noopRecorder struct{}

func (noopRecorder) RecordPublishFailure(string) {}
