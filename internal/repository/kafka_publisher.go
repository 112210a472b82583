package repository

import (
	"context"
	"fmt"

	"Sentinel/internal/domain/models"
	drepo "Sentinel/internal/domain/repository"
)

// Producer is the part of the Kafka producer the sinks use.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaResultPublisher emits every result to one topic, keyed by symbol so a
// symbol's results stay ordered within a partition.
type KafkaResultPublisher struct {
	producer Producer
	topic    string
}

var _ drepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(p Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (k *KafkaResultPublisher) Publish(ctx context.Context, res *models.AnalysisResult) error {
	if err := k.producer.Publish(ctx, k.topic, []byte(res.Symbol), res); err != nil {
		return fmt.Errorf("publish result %s: %w", res.ID, err)
	}
	return nil
}

// Close leaves the producer open; it is shared with the log publisher and closed by its owner.
func (k *KafkaResultPublisher) Close() error {
	return nil
}

// KafkaLogPublisher ships collected log batches through the same producer.
type KafkaLogPublisher struct {
	producer Producer
}

func NewKafkaLogPublisher(p Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: p}
}

func (k *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}
