package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"infrastat/internal/infrastat/models"
	"infrastat/internal/platform/kafka"
)

// KafkaPublisher serializes lifecycle events as JSON onto the event topic,
// keyed by batch ID so per-batch ordering is preserved across partitions.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafkaPublisher wraps a connected producer.
func NewKafkaPublisher(producer *kafka.Producer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.LifecycleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal lifecycle event",
			"type", event.Type,
			"batch_id", event.BatchID.String(),
			"error", err,
		)
		return
	}
	p.producer.Produce(ctx, event.BatchID.String(), payload)
}
