package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	pkgkafka "Aktiemotor/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditHandlerStoresRecommendation(t *testing.T) {
	archive := &fakeArchive{}
	h := NewAuditHandler("aktiemotor.recommendations", archive, nil)
	assert.Equal(t, "aktiemotor.recommendations", h.Topic())

	decided := time.Now().UTC()
	b, err := json.Marshal(models.Recommendation{
		ID: "r1", Ticker: "EVO", Side: models.SideBuy, Status: models.StatusConfirmed,
		CreatedAt: decided.Add(-time.Hour), DecidedAt: &decided,
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Len(t, archive.recs, 1)
	assert.Equal(t, "r1", archive.recs[0].ID)
	assert.Equal(t, models.StatusConfirmed, archive.recs[0].Status)
}

func TestAuditHandlerPoisonMessages(t *testing.T) {
	h := NewAuditHandler("t", &fakeArchive{}, nil)

	err := h.Handle(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, pkgkafka.ErrPoison)

	err = h.Handle(context.Background(), []byte(`{"ticker":"EVO"}`))
	assert.ErrorIs(t, err, pkgkafka.ErrPoison)
}

func TestAuditHandlerStoreErrorIsRetryable(t *testing.T) {
	h := NewAuditHandler("t", &fakeArchive{err: errors.New("clickhouse down")}, nil)
	err := h.Handle(context.Background(), []byte(`{"id":"r1","ticker":"EVO"}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, pkgkafka.ErrPoison))
}
