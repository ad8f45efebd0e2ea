package repository

import (
	"context"
	"fmt"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/cache"
	pkgcache "Aktiemotor/pkg/cache"
	applogger "Aktiemotor/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// CachedHistory decorates a BarSource with a TTL cache and collapses
// concurrent fetches of the same series. Fresh series are copied to the
// archive; when the primary fails, the fallback source (the archive) is read.
type CachedHistory struct {
	primary  domrepo.BarSource
	fallback domrepo.BarSource
	archive  domrepo.Archive
	cache    cache.BytesCache
	ttl      time.Duration
	group    singleflight.Group
	l        *applogger.Logger
}

func NewCachedHistory(primary domrepo.BarSource, c cache.BytesCache, ttl time.Duration) *CachedHistory {
	return &CachedHistory{primary: primary, cache: c, ttl: ttl, l: applogger.Nop()}
}

// WithArchive stores every freshly fetched series in a.
func (h *CachedHistory) WithArchive(a domrepo.Archive) *CachedHistory {
	h.archive = a
	return h
}

// WithFallback reads from src when the primary source fails.
func (h *CachedHistory) WithFallback(src domrepo.BarSource) *CachedHistory {
	h.fallback = src
	return h
}

// SetLogger injects a structured logger.
func (h *CachedHistory) SetLogger(l *applogger.Logger) {
	if l != nil {
		h.l = l.With("history")
	}
}

func (h *CachedHistory) DailyBars(ctx context.Context, symbol string, r domrepo.Range) ([]models.Bar, error) {
	key := pkgcache.Key("bars", symbol, string(r))
	if bars, ok := cache.GetJSON[[]models.Bar](ctx, h.cache, key); ok {
		return bars, nil
	}

	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		bars, err := h.primary.DailyBars(ctx, symbol, r)
		if err != nil {
			return h.fromFallback(ctx, symbol, r, err)
		}
		if err := cache.SetJSON(ctx, h.cache, key, bars, h.ttl); err != nil {
			h.l.Warn("history cache write failed", applogger.String("ticker", symbol), applogger.Error(err))
		}
		if h.archive != nil && len(bars) > 0 {
			if err := h.archive.StoreBars(ctx, symbol, bars); err != nil {
				h.l.Warn("bar archive write failed", applogger.String("ticker", symbol), applogger.Error(err))
			}
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Bar), nil
}

func (h *CachedHistory) fromFallback(ctx context.Context, symbol string, r domrepo.Range, cause error) ([]models.Bar, error) {
	if h.fallback == nil {
		return nil, cause
	}
	bars, err := h.fallback.DailyBars(ctx, symbol, r)
	if err == nil && len(bars) == 0 {
		err = models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", cause, err)
	}
	h.l.Warn("serving archived bars", applogger.String("ticker", symbol), applogger.Error(cause))
	return bars, nil
}
