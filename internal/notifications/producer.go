package notifications

import (
	"context"
	"fmt"
	"time"

	"seatline/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the Kafka event producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig(brokers []string, topic string) *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          brokers,
		Topic:            topic,
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// KafkaPublisher publishes reservation events with a synchronous producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPublisher creates a Kafka publisher
func NewKafkaPublisher(config *KafkaProducerConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers require a single in-flight request
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Same trip, same partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		config:   config,
		log:      logger.GetDefault(),
	}, nil
}

// newKafkaPublisherWithProducer wires a pre-built producer, used with sarama mocks
func newKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		config:   &KafkaProducerConfig{Topic: topic},
		log:      logger.GetDefault(),
	}
}

func (kp *KafkaPublisher) Publish(ctx context.Context, event *ReservationEvent) error {
	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal reservation event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.config.Topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(payload),
		Headers:   kp.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send reservation event to Kafka: %w", err)
	}

	kp.log.DebugContext(ctx, "reservation event published",
		"topic", kp.config.Topic,
		"partition", partition,
		"offset", offset,
		"type", string(event.Type),
		"reservation_id", event.ReservationID,
	)
	return nil
}

func (kp *KafkaPublisher) createHeaders(event *ReservationEvent) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.EventID)},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("content_type"), Value: []byte("application/json")},
	}
}

func (kp *KafkaPublisher) Close() error {
	if err := kp.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
