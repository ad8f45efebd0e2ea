package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Publisher enqueues work for a worker pool.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// ErrPermanent marks a job failure that must not be retried.
var ErrPermanent = errors.New("queue: permanent failure")

type QueueConfig struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
	JobTimeout time.Duration
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}

// NewMessage encodes payload into an envelope.
func NewMessage(id, msgType string, payload interface{}, now time.Time) (Message, error) {
	m := Message{ID: id, Type: msgType, Timestamp: now.UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		m.Payload = raw
	}
	return m, nil
}

// ParsePayload decodes a job payload. An empty payload yields the zero T.
func ParsePayload[T any](raw json.RawMessage) (*T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
	}
	return &out, nil
}

// shouldRetry reports whether a failed attempt gets another go.
func shouldRetry(m Message, limit int, err error) bool {
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	return m.Attempts < limit
}
