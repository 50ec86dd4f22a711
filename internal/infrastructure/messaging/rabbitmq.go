package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/event"
)

// DefaultQueue receives every trip event
const DefaultQueue = "trip.events"

// RabbitMQPublisher publishes trip events as persistent JSON messages to a
// durable queue. The connection is opened on first use and reopened after a
// failure.
type RabbitMQPublisher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQPublisher creates a publisher for queue on the broker at url
func NewRabbitMQPublisher(url, queue string, logger *zap.Logger) *RabbitMQPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RabbitMQPublisher{
		url:    url,
		queue:  queue,
		logger: logger,
	}
}

// Publish sends evt to the queue
func (p *RabbitMQPublisher) Publish(ctx context.Context, evt *event.Event) error {
	msg, err := newPublishing(evt)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Error("RabbitMQ publish failed",
			zap.String("event_id", evt.ID),
			zap.String("queue", p.queue),
			zap.Error(err))
		p.reset()
		return fmt.Errorf("failed to publish event %s: %w", evt.ID, err)
	}

	p.logger.Debug("Event published",
		zap.String("event_id", evt.ID),
		zap.String("type", string(evt.Type)),
		zap.String("queue", p.queue))
	return nil
}

// channel returns an open channel, dialing and declaring the queue if needed.
// Callers hold p.mu.
func (p *RabbitMQPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Error("RabbitMQ dial failed", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Info("Connected to RabbitMQ", zap.String("queue", p.queue))
	return ch, nil
}

func (p *RabbitMQPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func newPublishing(evt *event.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event %s: %w", evt.ID, err)
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     evt.ID,
		CorrelationId: evt.CorrelationID,
		Type:          string(evt.Type),
		Timestamp:     ts,
		Body:          body,
	}, nil
}

var _ port.EventPublisher = (*RabbitMQPublisher)(nil)
