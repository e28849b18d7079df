package events

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
)

const defaultTopic = "rbac.events"

// KafkaPublisher produces events to a single topic, keyed by event name so
// that events of one kind keep their relative order within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	source   string
}

// NewKafkaPublisher connects a synchronous producer to cfg.Kafka.Brokers.
func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Timeout = cfg.timeout()

	if cfg.Kafka.ClientID != "" {
		sc.ClientID = cfg.Kafka.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("events: kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, cfg), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, cfg Config) *KafkaPublisher {
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = defaultTopic
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		source:   cfg.source(),
	}
}

// Publish implements Publisher. The context is not consulted: sarama bounds
// the call with Producer.Timeout.
func (p *KafkaPublisher) Publish(_ context.Context, name string, payload map[string]any) error {
	body, err := newEnvelope(p.source, name, payload).marshal()
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", name, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(name),
		Value: sarama.ByteEncoder(body),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("events: kafka publish %s: %w", name, err)
	}

	return nil
}

// Close closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
