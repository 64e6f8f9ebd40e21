package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Common errors returned by the AsyncEmitter
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// AsyncEmitterConfig holds configuration options for the AsyncEmitter.
type AsyncEmitterConfig struct {
	// QueueSize bounds the number of events waiting for delivery.
	// If zero or negative, defaults to 256.
	QueueSize int

	// PublishTimeout bounds each delivery. If zero or negative, defaults to 5s.
	PublishTimeout time.Duration
}

// AsyncEmitter queues events and delivers them to the next emitter on a
// single worker goroutine, so delivery order matches EmitEvent order and the
// caller never waits on the broker.
type AsyncEmitter struct {
	next           EventEmitter
	queue          chan *ProductEvent
	publishTimeout time.Duration
	recorder       FailureRecorder
	logger         *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewAsyncEmitter creates an AsyncEmitter in front of next. Call Start to
// begin delivery and Stop to drain.
func NewAsyncEmitter(
	next EventEmitter,
	config AsyncEmitterConfig,
	recorder FailureRecorder,
	logger *slog.Logger,
) (*AsyncEmitter, error) {
	if next == nil {
		return nil, fmt.Errorf("next emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}

	return &AsyncEmitter{
		next:           next,
		queue:          make(chan *ProductEvent, config.QueueSize),
		publishTimeout: config.PublishTimeout,
		recorder:       recorder,
		logger:         logger.With("component", "async_emitter"),
		done:           make(chan struct{}),
	}, nil
}

// Start launches the delivery worker. Calling Start more than once has no effect.
func (e *AsyncEmitter) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go e.run()
	e.logger.Info("async event emitter started", "queue_cap", cap(e.queue))
}

// EmitEvent enqueues the event without blocking.
// Returns ErrQueueFull or ErrQueueClosed when the event cannot be accepted.
func (e *AsyncEmitter) EmitEvent(_ context.Context, event *ProductEvent) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrQueueClosed
	}

	select {
	case e.queue <- event:
		e.logger.Debug("event enqueued",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"queue_len", len(e.queue),
			"queue_cap", cap(e.queue))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(e.queue))
	}
}

// Stop stops accepting events and waits until the queue is drained or ctx
// is done. Events still queued when ctx expires are abandoned.
func (e *AsyncEmitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	started := e.started
	e.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-e.done:
		e.logger.Info("async event emitter drained")
		return nil
	case <-ctx.Done():
		e.logger.Warn("async event emitter stopped before draining",
			"pending", len(e.queue))
		return ctx.Err()
	}
}

func (e *AsyncEmitter) run() {
	defer close(e.done)
	for event := range e.queue {
		e.deliver(event)
	}
}

// deliver runs detached from any request context.
func (e *AsyncEmitter) deliver(event *ProductEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), e.publishTimeout)
	defer cancel()

	if err := e.next.EmitEvent(ctx, event); err != nil {
		e.logger.Warn("failed to publish product event",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"product_id", event.ProductID,
			"error", err)
		e.recorder.RecordPublishFailure(string(event.EventType))
	}
}
