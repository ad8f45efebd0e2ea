package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the key/value surface shared by the Redis, memory and layered
// caches. Values are stored as JSON except strings, which are stored raw.
// Keys are relative to the implementation's prefix.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, keys ...string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
	MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// MGetTyped fetches keys and decodes each JSON value into T. Missing keys
// and undecodable values are left out of the result.
func MGetTyped[T any](ctx context.Context, c Service, keys ...string) (map[string]T, error) {
	out := make(map[string]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	raw, err := c.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	for k, v := range raw {
		var obj T
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			continue
		}
		out[k] = obj
	}
	return out, nil
}

// ScanTyped decodes every value whose key matches pattern.
func ScanTyped[T any](ctx context.Context, c Service, pattern string) (map[string]T, error) {
	keys, err := c.Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return MGetTyped[T](ctx, c, keys...)
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(value)
	}
}

func decodeValue(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
