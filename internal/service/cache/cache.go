package cache

import (
	"context"
	"encoding/json"
	"time"
)

// BytesCache stores raw bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON decodes a cached JSON value. Errors and undecodable entries read as misses.
func GetJSON[T any](ctx context.Context, c BytesCache, key string) (T, bool) {
	var out T
	if c == nil {
		return out, false
	}
	b, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c BytesCache, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.SetBytes(ctx, key, b, ttl)
}
