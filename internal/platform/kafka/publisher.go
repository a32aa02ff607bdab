// Package kafka provides the outbound event publisher. Release events and
// rendered messages are handed to Kafka topics; the delivery transport and the
// asset-distribution pipeline consume them downstream.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"heirloom/internal/platform/config"
)

// Publisher wraps a franz-go client for JSON record production.
type Publisher struct {
	client        *kgo.Client
	messagesTopic string
	releasesTopic string
}

// NewPublisher connects to the configured brokers. Returns nil when no
// brokers are configured (Kafka publication disabled).
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Publisher{
		client:        client,
		messagesTopic: cfg.MessagesTopic,
		releasesTopic: cfg.ReleasesTopic,
	}, nil
}

// PublishMessage produces a rendered outbound message, keyed by recipient so
// per-recipient ordering is preserved.
func (p *Publisher) PublishMessage(ctx context.Context, key string, payload any) error {
	return p.produce(ctx, p.messagesTopic, key, payload)
}

// PublishRelease produces an inheritance release event, keyed by user.
func (p *Publisher) PublishRelease(ctx context.Context, key string, payload any) error {
	return p.produce(ctx, p.releasesTopic, key, payload)
}

func (p *Publisher) produce(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
