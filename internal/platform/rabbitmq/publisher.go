package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNacked is returned when the broker refuses a message.
var ErrNacked = errors.New("message not acknowledged by broker")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher is closed")

// connection and channel narrow amqp091 to what the publisher uses.
type connection interface {
	Channel() (channel, error)
	Close() error
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	PublishConfirmed(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (connection, error)

// Publisher sends messages to a durable topic exchange with publisher
// confirms. The connection is opened on first use and reopened on the next
// Publish after any failure.
type Publisher struct {
	url      string
	exchange string
	dial     dialFunc
	logger   *slog.Logger

	mu     sync.Mutex
	conn   connection
	ch     channel
	closed bool
}

// NewPublisher creates a Publisher for the given broker URL and exchange.
// No connection is made until the first Publish.
func NewPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	return newPublisher(url, exchange, dialAMQP, logger)
}

func newPublisher(url, exchange string, dial dialFunc, logger *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("broker url cannot be empty")
	}
	if exchange == "" {
		return nil, fmt.Errorf("exchange cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:      url,
		exchange: exchange,
		dial:     dial,
		logger:   logger.With(slog.String("component", "rabbitmq_publisher")),
	}, nil
}

// Publish sends body as a persistent JSON message routed by topic and waits
// for the broker's confirmation or ctx.
func (p *Publisher) Publish(ctx context.Context, topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if err := p.ensureChannel(); err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishConfirmed(ctx, p.exchange, topic, msg); err != nil {
		p.logger.Warn("publish failed, connection will be reopened",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		p.reset()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close releases the connection. Further Publish calls return ErrClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	p.ch, p.conn = nil, nil
	return err
}

// ensureChannel opens a connection and a confirming channel if none is held.
// Caller must hold p.mu.
func (p *Publisher) ensureChannel() error {
	if p.ch != nil {
		return nil
	}

	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Info("connected to broker", slog.String("exchange", p.exchange))
	return nil
}

// reset drops the current connection. Caller must hold p.mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// amqpConnection adapts *amqp.Connection.
type amqpConnection struct {
	conn *amqp.Connection
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

func (c *amqpConnection) Channel() (channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{ch: ch}, nil
}

func (c *amqpConnection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

// amqpChannel adapts *amqp.Channel.
type amqpChannel struct {
	ch *amqp.Channel
}

func (c *amqpChannel) ExchangeDeclare(
	name, kind string,
	durable, autoDelete, internal, noWait bool,
	args amqp.Table,
) error {
	return c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *amqpChannel) Confirm(noWait bool) error {
	return c.ch.Confirm(noWait)
}

func (c *amqpChannel) PublishConfirmed(
	ctx context.Context,
	exchange, key string,
	msg amqp.Publishing,
) error {
	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return err
	}
	if confirmation == nil {
		return nil
	}
	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (c *amqpChannel) Close() error {
	if c.ch.IsClosed() {
		return nil
	}
	return c.ch.Close()
}
