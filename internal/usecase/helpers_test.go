package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/repository"
	pkgcache "Aktiemotor/pkg/cache"
	"Aktiemotor/pkg/util"

	"github.com/stretchr/testify/require"
)

var errNoHistory = errors.New("no history")

func newTestStore(t *testing.T) *repository.CacheStateStore {
	t.Helper()
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	return repository.NewCacheStateStore(mc)
}

func testHours(t *testing.T) util.TradingHours {
	t.Helper()
	h, err := util.NewTradingHours("Europe/Stockholm", "09:00", "17:30")
	require.NoError(t, err)
	return h
}

// trend builds n daily bars compounding by rate per bar from start. The last
// bar trades volumeSpike times the usual volume.
func trend(n int, start, rate, volume, volumeSpike float64) []models.Bar {
	bars := make([]models.Bar, n)
	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -n)
	for i := range bars {
		c := start * math.Pow(1+rate, float64(i))
		v := volume
		if i == n-1 {
			v *= volumeSpike
		}
		bars[i] = models.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c * 1.005, Low: c * 0.995, Close: c, Volume: v}
	}
	return bars
}

// risingIndex classifies as BULL.
func risingIndex() []models.Bar { return trend(260, 1000, 0.0005, 1e6, 1) }

// strongStock outperforms risingIndex on every count the buy score rewards
// except news and insiders.
func strongStock() []models.Bar { return trend(260, 10, 0.01, 1e6, 3) }

// weakStock falls steadily and underperforms the index.
func weakStock() []models.Bar { return trend(260, 200, -0.005, 1e6, 1) }

type fakeBars struct {
	mu    sync.Mutex
	bars  map[string][]models.Bar
	calls map[string]int
}

func newFakeBars(bars map[string][]models.Bar) *fakeBars {
	return &fakeBars{bars: bars, calls: make(map[string]int)}
}

func (f *fakeBars) DailyBars(_ context.Context, symbol string, _ domrepo.Range) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	b, ok := f.bars[symbol]
	if !ok {
		return nil, errNoHistory
	}
	return b, nil
}

type fakeQuotes map[string]float64

func (f fakeQuotes) LastPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return p, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domrepo.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n domrepo.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	emitted []*models.Recommendation
	updated []*models.Recommendation
}

func (f *fakeSink) Emit(_ context.Context, rec *models.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, rec)
	return nil
}

func (f *fakeSink) Update(_ context.Context, rec *models.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, rec)
	return nil
}

type fakeNews struct{}

func (fakeNews) Headlines(_ context.Context, company string, _ int) ([]models.NewsItem, error) {
	return []models.NewsItem{{Title: company + " höjer prognosen"}}, nil
}

type fakeSentiment struct{ label models.SentimentLabel }

func (f fakeSentiment) Analyze(context.Context, string, string) *models.SentimentResult {
	return &models.SentimentResult{Sentiment: f.label, Score: 0.8, Reason: "guidance raised"}
}

func (fakeSentiment) Describe(context.Context, *models.Recommendation) string { return "described" }

type fakeInsider struct{ trades []models.InsiderTrade }

func (f fakeInsider) InsiderTrades(context.Context, string, time.Time) ([]models.InsiderTrade, error) {
	return f.trades, nil
}

func bigInsiderBuy() fakeInsider {
	return fakeInsider{trades: []models.InsiderTrade{{Person: "CEO", Action: "Förvärv", Volume: 10_000, Price: 100}}}
}

type fakeArchive struct {
	mu        sync.Mutex
	snapshots int
	recs      []*models.Recommendation
	err       error
}

func (f *fakeArchive) Init(context.Context) error { return nil }

func (f *fakeArchive) StoreBars(context.Context, string, []models.Bar) error { return nil }

func (f *fakeArchive) StoreSnapshot(context.Context, *models.IndicatorSnapshot, models.MarketRegime, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	return nil
}

func (f *fakeArchive) StoreRecommendations(_ context.Context, recs []*models.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, recs...)
	return nil
}

func (f *fakeArchive) Health(context.Context) error { return nil }

func (f *fakeArchive) Close() error { return nil }

func watch(t *testing.T, store domrepo.WatchlistStore, tickers ...string) {
	t.Helper()
	entries := make([]models.WatchlistEntry, 0, len(tickers))
	for _, tk := range tickers {
		entries = append(entries, models.WatchlistEntry{
			Ticker:   tk,
			Strategy: models.StrategyTrendFollowing,
			Config:   models.DefaultStrategyConfig(),
			Source:   sourceConfig,
		})
	}
	require.NoError(t, store.UpsertWatchlist(context.Background(), entries...))
}

func ptr[T any](v T) *T { return &v }

type fakeEarnings map[string]time.Time

func (f fakeEarnings) NextEarnings(_ context.Context, symbol string) (*time.Time, error) {
	at, ok := f[symbol]
	if !ok {
		return nil, nil
	}
	return &at, nil
}
