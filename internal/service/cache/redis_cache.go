package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "Aktiemotor/pkg/cache"
)

// ServiceCache adapts a pkg/cache.Service (Redis in production) to
// BytesCache under a namespace.
type ServiceCache struct {
	svc       pkgcache.Service
	namespace string
}

func NewServiceCache(svc pkgcache.Service, namespace string) *ServiceCache {
	return &ServiceCache{svc: svc, namespace: namespace}
}

func (s *ServiceCache) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

func (s *ServiceCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	var b []byte
	if err := s.svc.Get(ctx, s.key(key), &b); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *ServiceCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(ctx, s.key(key), value, ttl)
}
