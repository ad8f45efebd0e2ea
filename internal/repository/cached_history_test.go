package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls int32
	delay time.Duration
	bars  []models.Bar
	err   error
}

func (f *fakeSource) DailyBars(ctx context.Context, symbol string, r domrepo.Range) ([]models.Bar, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.bars, f.err
}

type recordingArchive struct {
	NoopArchive
	mu     sync.Mutex
	stored map[string]int
}

func (a *recordingArchive) StoreBars(_ context.Context, ticker string, bars []models.Bar) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stored == nil {
		a.stored = map[string]int{}
	}
	a.stored[ticker] += len(bars)
	return nil
}

func someBars(n int) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{Date: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC), Close: float64(100 + i)}
	}
	return out
}

func TestCachedHistoryCollapsesAndCaches(t *testing.T) {
	src := &fakeSource{bars: someBars(3), delay: 50 * time.Millisecond}
	arch := &recordingArchive{}
	h := NewCachedHistory(src, cache.NewTTLCache(), time.Minute).WithArchive(arch)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bars, err := h.DailyBars(context.Background(), "EVO", domrepo.Range1Y)
			assert.NoError(t, err)
			assert.Len(t, bars, 3)
		}()
	}
	wg.Wait()

	bars, err := h.DailyBars(context.Background(), "EVO", domrepo.Range1Y)
	require.NoError(t, err)
	assert.Equal(t, 102.0, bars[2].Close)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))
	assert.Equal(t, 3, arch.stored["EVO"])
}

func TestCachedHistoryFallsBack(t *testing.T) {
	boom := errors.New("yahoo down")
	primary := &fakeSource{err: boom}
	fallback := &fakeSource{bars: someBars(2)}
	h := NewCachedHistory(primary, cache.NewTTLCache(), time.Minute).WithFallback(fallback)

	bars, err := h.DailyBars(context.Background(), "EVO", domrepo.Range1Y)
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	empty := NewCachedHistory(primary, cache.NewTTLCache(), time.Minute).WithFallback(&fakeSource{})
	_, err = empty.DailyBars(context.Background(), "EVO", domrepo.Range1Y)
	assert.ErrorIs(t, err, boom)

	none := NewCachedHistory(primary, nil, time.Minute)
	_, err = none.DailyBars(context.Background(), "EVO", domrepo.Range1Y)
	assert.ErrorIs(t, err, boom)
}
