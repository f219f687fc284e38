package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nicklaros/stockengine/internal/application/ports"
)

// KafkaSink publishes events to a single topic via segmentio/kafka-go,
// keyed by SKU so all movements for one item stay in partition order.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink opens a writer against brokers/topic. The writer is lazy:
// no connection is made until the first Publish.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Publish(ctx context.Context, event ports.InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.SKU),
		Value: payload,
		Time:  time.Now(),
	}

	if err := s.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write inventory event to kafka: %w", err)
	}
	return nil
}

// Close releases the underlying writer's connections.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

var _ ports.EventSinkPort = (*KafkaSink)(nil)
