package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes keyed messages to a single topic. The pipeline
// uses it for the run-summary audit stream; losing a summary never affects
// control flow, so callers treat publish errors as log-and-continue.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close implements shutdown.Closeable.
func (p *KafkaProducer) Close(ctx context.Context) error {
	return p.writer.Close()
}
