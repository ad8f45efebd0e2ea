package repository

import (
	"context"
	"errors"
	"testing"

	"Aktiemotor/internal/domain/models"
	pkgkafka "Aktiemotor/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProducer struct {
	topic  string
	msgs   []pkgkafka.Message
	err    error
	closed bool
}

func (c *captureProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, messages...)
	return c.err
}

func (c *captureProducer) Close() error {
	c.closed = true
	return nil
}

func TestKafkaPublisherKeysByTicker(t *testing.T) {
	prod := &captureProducer{}
	p := &KafkaPublisher{producer: prod, topic: "aktiemotor.recommendations"}

	r := &models.Recommendation{ID: "r1", Ticker: "EVO", Side: models.SideSell, Kind: models.KindStopTake, Status: models.StatusPending}
	require.NoError(t, p.PublishRecommendation(context.Background(), r))
	require.Len(t, prod.msgs, 1)
	assert.Equal(t, "aktiemotor.recommendations", prod.topic)
	assert.Equal(t, []byte("EVO"), prod.msgs[0].Key)
	assert.Equal(t, "stop_take", prod.msgs[0].Headers["kind"])
	assert.Same(t, r, prod.msgs[0].Value)

	require.NoError(t, p.Close())
	assert.True(t, prod.closed)
}

func TestKafkaPublisherWrapsErrors(t *testing.T) {
	boom := errors.New("broker gone")
	p := &KafkaPublisher{producer: &captureProducer{err: boom}, topic: "t"}
	err := p.PublishRecommendation(context.Background(), &models.Recommendation{Ticker: "EVO"})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}
