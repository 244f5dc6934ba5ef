package notifications

import (
	"context"
	"fmt"
	"sync"

	"seatline/internal/shared/config"
)

// Publisher broadcasts committed reservation changes. The audit table is
// the record of truth; publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event *ReservationEvent) error
	Close() error
}

// NewPublisher builds the publisher selected by EVENT_BROKER
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return Noop(), nil
	case "kafka":
		return NewKafkaPublisher(DefaultKafkaProducerConfig(cfg.KafkaBrokers, cfg.KafkaTopic))
	case "rabbitmq":
		return NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
	}
}

// Noop discards events
func Noop() Publisher { return noopPublisher{} }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *ReservationEvent) error { return nil }
func (noopPublisher) Close() error                                     { return nil }

// Recorder keeps published events in memory. Tests use it to assert what
// a service announced.
type Recorder struct {
	mu     sync.Mutex
	events []ReservationEvent
}

func (r *Recorder) Publish(_ context.Context, event *ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []ReservationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReservationEvent, len(r.events))
	copy(out, r.events)
	return out
}
