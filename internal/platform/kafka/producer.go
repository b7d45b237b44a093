// Package kafka wraps the franz-go client for lifecycle-event publishing.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is a thin wrapper over a kgo client bound to one topic.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewProducer connects to the given brokers. Returns nil when no brokers are
// configured so callers can fall back to a no-op publisher.
func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Produce sends one record asynchronously. Delivery failures are logged, not
// returned: lifecycle events are fire-and-forget by contract.
func (p *Producer) Produce(ctx context.Context, key string, payload []byte) {
	record := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("kafka produce failed",
				"topic", r.Topic,
				"key", string(r.Key),
				"error", err,
			)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (p *Producer) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
