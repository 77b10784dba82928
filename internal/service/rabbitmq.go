package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/config"
	"github.com/ad-tracker/video-moderation-go/internal/models"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

const defaultConfirmTimeout = 5 * time.Second

// ErrPublisherClosed is returned when publishing on a closed publisher.
var ErrPublisherClosed = errors.New("publisher is closed")

// EventPublisher announces committed moderation changes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.ModerationEvent) error
	IsHealthy() bool
	Close() error
}

// MessagePublisher publishes moderation events to a RabbitMQ topic exchange
// and waits for the broker to confirm each one.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.Mutex
}

// confirmation is the broker's pending answer for one delivery tag.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// NewMessagePublisher connects and declares the exchange and audit queue.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

// RoutingKey returns the routing key an event type is published with.
func RoutingKey(prefix string, eventType models.EventType) string {
	return prefix + "." + string(eventType)
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	conn, err := amqp.Dial(mp.config.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(what string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to %s: %w", what, err)
	}

	if err := ch.Confirm(false); err != nil {
		return fail("enable publisher confirms", err)
	}

	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		return fail("declare exchange", err)
	}

	// The audit queue receives every event type.
	if _, err := ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
			"x-max-length":  100000,
		},
	); err != nil {
		return fail("declare queue", err)
	}

	if err := ch.QueueBind(
		mp.config.Queue,
		mp.config.RoutingKeyPrefix+".#",
		mp.config.Exchange,
		false,
		nil,
	); err != nil {
		return fail("bind queue", err)
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

// PublishEvent sends one event and blocks until the broker acks it. Each
// publish waits on the confirmation of its own delivery tag, so a late ack
// for an abandoned publish is never taken for another message's.
func (mp *MessagePublisher) PublishEvent(ctx context.Context, event *models.ModerationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	routingKey := RoutingKey(mp.config.RoutingKeyPrefix, event.Type)

	dc, err := mp.publish(ctx, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
	})
	if err != nil {
		return err
	}

	if err := awaitConfirm(ctx, dc, mp.config.ConfirmTimeout); err != nil {
		return fmt.Errorf("message %s: %w", event.ID, err)
	}

	logger.Log.Debug("Published moderation event",
		zap.String("eventId", event.ID.String()),
		zap.String("routingKey", routingKey),
	)

	return nil
}

func (mp *MessagePublisher) publish(ctx context.Context, routingKey string, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.channel == nil || mp.channel.IsClosed() {
		return nil, ErrPublisherClosed
	}

	dc, err := mp.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		mp.config.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}

	return dc, nil
}

// awaitConfirm waits up to timeout (default 5s) for dc to be acked.
func awaitConfirm(ctx context.Context, dc confirmation, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acked, err := dc.WaitContext(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timeout waiting for publish confirmation: %w", err)
	case err != nil:
		return err
	case !acked:
		return errors.New("not acknowledged by broker")
	}
	return nil
}

// Close closes the channel and connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil && !mp.channel.IsClosed() {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil && !mp.conn.IsClosed() {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing publisher: %w", err)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil && !mp.channel.IsClosed()
}

// NoopPublisher drops every event. It is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(ctx context.Context, event *models.ModerationEvent) error {
	return nil
}

func (NoopPublisher) IsHealthy() bool { return true }

func (NoopPublisher) Close() error { return nil }
