package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/domain"
)

// DefaultExchange is the topic exchange domain events are routed through.
const DefaultExchange = "boxoffice.events"

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes outbox events to a RabbitMQ topic exchange,
// routed by event type. It redials on the next publish after a failure.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   zerolog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
	dial    func() (amqpChannel, error)
}

// NewAMQPPublisher creates a publisher for url. The connection is opened lazily.
func NewAMQPPublisher(url, exchange string, logger zerolog.Logger) *AMQPPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		logger:   logger.With().Str("component", "amqp").Logger(),
	}
	p.dial = p.dialBroker
	return p
}

// Publish sends event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		ch, err := p.dial()
		if err != nil {
			return fmt.Errorf("amqp connect: %w", err)
		}
		if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("amqp declare exchange: %w", err)
		}
		p.channel = ch
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, event.EventType, false, false, msg); err != nil {
		p.logger.Warn().Err(err).Str("event_id", event.ID).Msg("publish failed, dropping channel")
		p.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}

	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) dialBroker() (amqpChannel, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return ch, nil
}

func newMessage(event *domain.OutboxEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(map[string]any{
		"id":             event.ID,
		"type":           event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"occurred_at":    event.CreatedAt,
		"payload":        event.Payload,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.EventType,
		Timestamp:    event.CreatedAt,
		Body:         body,
	}, nil
}
