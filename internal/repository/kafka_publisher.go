package repository

import (
	"context"
	"fmt"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/domain/repository"
	pkgkafka "Aktiemotor/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher implements RecommendationPublisher for Kafka. Messages are
// keyed by ticker so one ticker's history stays ordered within a partition.
type KafkaPublisher struct {
	producer batchProducer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishRecommendation(ctx context.Context, rec *models.Recommendation) error {
	return p.PublishBatch(ctx, []*models.Recommendation{rec})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(r.Ticker),
			Value: r,
			Headers: map[string]string{
				"side":   string(r.Side),
				"kind":   string(r.Kind),
				"status": string(r.Status),
			},
		})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish recommendations: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishRecommendation(context.Context, *models.Recommendation) error { return nil }

func (NoopPublisher) Close() error { return nil }

var (
	_ repository.RecommendationPublisher = (*KafkaPublisher)(nil)
	_ repository.RecommendationPublisher = NoopPublisher{}
	_ repository.Archive                 = (*CHArchive)(nil)
	_ repository.Archive                 = NoopArchive{}
	_ repository.BarSource               = (*CHArchive)(nil)
)
