package cache

import (
	"container/list"
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

type memoryItem struct {
	key      string
	data     []byte
	expireAt time.Time // zero means no expiry
	elem     *list.Element
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && !now.Before(m.expireAt)
}

// MemoryCache is an in-process Service with TTLs and LRU eviction. Values
// round-trip through the same encoding as Redis so callers cannot tell the
// two apart. Patterns use path.Match syntax, which covers Redis's * and ?.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	lru     *list.List
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{CleanupInterval: time.Minute, Now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	mc := &MemoryCache{
		items:   make(map[string]*memoryItem),
		lru:     list.New(),
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go mc.janitor(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("memory cache set %s: %w", key, err)
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.setLocked(key, data, expiration)
	return nil
}

func (mc *MemoryCache) setLocked(key string, data []byte, expiration time.Duration) {
	var expireAt time.Time
	if expiration > 0 {
		expireAt = mc.now().Add(expiration)
	}
	if it, ok := mc.items[key]; ok {
		it.data = append([]byte(nil), data...)
		it.expireAt = expireAt
		mc.lru.MoveToFront(it.elem)
		return
	}
	if mc.maxSize > 0 && len(mc.items) >= mc.maxSize {
		if oldest := mc.lru.Back(); oldest != nil {
			mc.removeLocked(oldest.Value.(*memoryItem).key)
		}
	}
	it := &memoryItem{key: key, data: append([]byte(nil), data...), expireAt: expireAt}
	it.elem = mc.lru.PushFront(it)
	mc.items[key] = it
}

// getLocked returns the live item for key, dropping it if expired.
func (mc *MemoryCache) getLocked(key string) (*memoryItem, bool) {
	it, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	if it.expired(mc.now()) {
		mc.removeLocked(key)
		return nil, false
	}
	return it, true
}

func (mc *MemoryCache) removeLocked(key string) {
	if it, ok := mc.items[key]; ok {
		mc.lru.Remove(it.elem)
		delete(mc.items, key)
	}
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	it, ok := mc.getLocked(key)
	var data []byte
	if ok {
		mc.lru.MoveToFront(it.elem)
		data = it.data
	}
	mc.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return decodeValue(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		mc.removeLocked(k)
	}
	return nil
}

func (mc *MemoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	keys, err := mc.Keys(ctx, pattern)
	if err != nil {
		return err
	}
	return mc.Delete(ctx, keys...)
}

// Keys returns live keys matching pattern in sorted order.
func (mc *MemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("memory cache pattern %q: %w", pattern, err)
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	var out []string
	for k, it := range mc.items {
		if it.expired(now) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if _, ok := mc.getLocked(k); ok {
			return true, nil
		}
	}
	return false, nil
}

// Increment treats a missing key as 0, like INCR. The TTL is preserved.
func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	it, ok := mc.getLocked(key)
	if !ok {
		mc.setLocked(key, []byte("1"), 0)
		return 1, nil
	}
	n, err := strconv.ParseInt(string(it.data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("memory cache incr %s: value is not an integer", key)
	}
	n++
	it.data = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	it, ok := mc.getLocked(key)
	if !ok {
		return false, nil
	}
	if expiration <= 0 {
		mc.removeLocked(key)
		return true, nil
	}
	it.expireAt = mc.now().Add(expiration)
	return true, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for k, v := range values {
		if err := mc.Set(ctx, k, v, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if it, ok := mc.getLocked(k); ok {
			out[k] = string(it.data)
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.getLocked(key); ok {
		return false, nil
	}
	mc.setLocked(key, []byte("locked"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len counts entries including expired ones not yet swept.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.items)
}

func (mc *MemoryCache) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			mc.mu.Lock()
			now := mc.now()
			for k, it := range mc.items {
				if it.expired(now) {
					mc.removeLocked(k)
				}
			}
			mc.mu.Unlock()
		case <-mc.stop:
			return
		}
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}
