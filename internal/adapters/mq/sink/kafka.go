package sink

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer that hashes message keys across partitions.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaSink publishes events to a Kafka topic keyed by event type.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink wraps w.
func NewKafkaSink(w MessageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Handle writes one event.
func (s *KafkaSink) Handle(ctx context.Context, e model.PlatformEvent) error {
	value, err := Encode(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.Type),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID)},
			{Key: "source", Value: []byte(e.Source)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
