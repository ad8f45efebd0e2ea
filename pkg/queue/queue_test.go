package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanPayload struct {
	Universe []string `json:"universe"`
	Notify   bool     `json:"notify"`
}

func TestMessageRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 17, 45, 0, 0, time.UTC)
	m, err := NewMessage("id-1", "scan.universe", scanPayload{Universe: []string{"EVO", "SINCH"}, Notify: true}, now)
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	var back Message
	require.NoError(t, json.Unmarshal(data, &back))

	p, err := ParsePayload[scanPayload](back.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"EVO", "SINCH"}, p.Universe)
	assert.True(t, p.Notify)
	assert.Equal(t, now, back.Timestamp)
}

func TestParsePayloadEmptyAndInvalid(t *testing.T) {
	p, err := ParsePayload[scanPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, p.Universe)

	_, err = ParsePayload[scanPayload](json.RawMessage(`{"universe": 3}`))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestShouldRetry(t *testing.T) {
	transient := errors.New("yahoo 503")
	assert.True(t, shouldRetry(Message{Attempts: 0}, 3, transient))
	assert.True(t, shouldRetry(Message{Attempts: 2}, 3, transient))
	assert.False(t, shouldRetry(Message{Attempts: 3}, 3, transient))
	assert.False(t, shouldRetry(Message{}, 3, fmt.Errorf("wrap: %w", ErrPermanent)))
	assert.False(t, shouldRetry(Message{}, 3, context.Canceled))
}

func TestJobFunc(t *testing.T) {
	var got string
	j := JobFunc{JobName: "evaluate", JobType: "evaluate.ticker", Fn: func(_ context.Context, raw json.RawMessage) error {
		got = string(raw)
		return nil
	}}
	require.NoError(t, j.Handle(context.Background(), json.RawMessage(`{"ticker":"EVO"}`)))
	assert.Equal(t, `{"ticker":"EVO"}`, got)
	assert.Equal(t, "evaluate.ticker", j.Type())
}
