package events

import (
	"context"

	"github.com/dealgrid/dealgrid/pkg/json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig holds broker addresses and the governance topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaEmitter publishes event envelopes to a Kafka topic.
type KafkaEmitter struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaEmitter creates an emitter for the given brokers and topic.
func NewKafkaEmitter(cfg KafkaConfig, log *zap.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
		log: log.With(zap.String("module", "events")),
	}
}

// EmitEvent marshals the envelope and writes it to the topic, keyed by entity
// so per-entity ordering is preserved.
func (e *KafkaEmitter) EmitEvent(ctx context.Context, eventType, entityID string, payload map[string]interface{}) error {
	envelope := NewEnvelope(uuid.NewString(), eventType, entityID, payload)
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entityID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}
