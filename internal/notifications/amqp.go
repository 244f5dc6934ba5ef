package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes reservation events to a topic exchange, routed
// by event type. Messages are persistent.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: exchange declare failed: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event *ReservationEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event failed: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return fmt.Errorf("rabbitmq: channel close failed: %w", chErr)
	}
	if connErr != nil {
		return fmt.Errorf("rabbitmq: connection close failed: %w", connErr)
	}
	return nil
}
