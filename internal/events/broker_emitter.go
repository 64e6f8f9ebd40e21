package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
)

// DefaultRetryDelay is the pause before the single retry.
const DefaultRetryDelay = 100 * time.Millisecond

// PublishError reports an event the broker did not accept after all attempts.
type PublishError struct {
	EventID   uuid.UUID
	EventType EventType
	Attempts  int
	Err       error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s event %s failed after %d attempt(s): %v",
		e.EventType, e.EventID, e.Attempts, e.Err)
}

// Unwrap returns the last publish error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// BrokerEmitter encodes events as JSON and publishes them with the event type
// as topic. A failed publish is retried once.
type BrokerEmitter struct {
	publisher  Publisher
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewBrokerEmitter creates a BrokerEmitter. A non-positive retryDelay
// selects DefaultRetryDelay.
func NewBrokerEmitter(publisher Publisher, retryDelay time.Duration, logger *slog.Logger) (*BrokerEmitter, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &BrokerEmitter{
		publisher:  publisher,
		logger:     logger.With("component", "broker_emitter"),
		retryDelay: retryDelay,
	}, nil
}

// EmitEvent implements EventEmitter. It returns a *PublishError when both
// attempts fail.
func (e *BrokerEmitter) EmitEvent(ctx context.Context, event *ProductEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.EventType, err)
	}

	log := logger.FromContextOrDefault(ctx, e.logger)
	topic := string(event.EventType)

	const maxAttempts = 2
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return &PublishError{
					EventID:   event.EventID,
					EventType: event.EventType,
					Attempts:  attempt - 1,
					Err:       lastErr,
				}
			case <-time.After(e.retryDelay):
			}
		}

		lastErr = e.publisher.Publish(ctx, topic, body)
		if lastErr == nil {
			log.Debug("event published",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"attempt", attempt)
			return nil
		}

		log.Debug("event publish attempt failed",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"attempt", attempt,
			"error", lastErr)
	}

	return &PublishError{
		EventID:   event.EventID,
		EventType: event.EventType,
		Attempts:  maxAttempts,
		Err:       lastErr,
	}
}
