// Package kafka publishes submission lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/formflow/formflow-go/adapters"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	Topic        string        `json:"topic" yaml:"topic"`
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
}

// Publisher implements adapters.Publisher over a kafka writer. Events are
// keyed by submission id so per-submission ordering survives partitioning.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka-backed event publisher.
func NewPublisher(config Config) (*Publisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if config.BatchTimeout == 0 {
		config.BatchTimeout = time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
	}
	return &Publisher{writer: writer}, nil
}

func (p *Publisher) Publish(ctx context.Context, event adapters.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SubmissionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
