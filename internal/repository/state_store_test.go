package repository

import (
	"context"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	pkgcache "Aktiemotor/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *CacheStateStore {
	t.Helper()
	mc := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	return NewCacheStateStore(mc)
}

func rec(id, ticker string, side models.Side, status models.SignalStatus, at time.Time) *models.Recommendation {
	return &models.Recommendation{ID: id, Ticker: ticker, Side: side, Status: status, CreatedAt: at}
}

func TestSignalsPendingPointerFollowsStatus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveSignal(ctx, rec("a", "EVO", models.SideBuy, models.StatusPending, t0)))
	p, err := s.PendingSignal(ctx, "EVO", models.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)

	_, err = s.PendingSignal(ctx, "EVO", models.SideSell)
	assert.ErrorIs(t, err, models.ErrNotFound)

	r := rec("a", "EVO", models.SideBuy, models.StatusRejected, t0)
	require.NoError(t, s.SaveSignal(ctx, r))
	_, err = s.PendingSignal(ctx, "EVO", models.SideBuy)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := s.GetSignal(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestListSignalsNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSignal(ctx, rec("1", "EVO", models.SideBuy, models.StatusPending, t0)))
	require.NoError(t, s.SaveSignal(ctx, rec("2", "SINCH", models.SideSell, models.StatusConfirmed, t0.Add(time.Minute))))
	require.NoError(t, s.SaveSignal(ctx, rec("3", "HTRO", models.SideBuy, models.StatusPending, t0.Add(2*time.Minute))))

	all, err := s.ListSignals(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	pending, err := s.ListSignals(ctx, models.StatusPending, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "3", pending[0].ID)
}

func TestPositionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()
	pos := models.Position{ID: "p1", Ticker: "EVO", EntryPrice: 1000, Quantity: 2, OpenedAt: now}

	require.NoError(t, s.OpenPosition(ctx, pos))
	assert.ErrorIs(t, s.OpenPosition(ctx, pos), models.ErrPositionExists)

	list, err := s.ListPositions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	trade := models.ClosedTrade{Position: pos, ExitPrice: 1100, PnL: 200, PnLPct: 0.1, ClosedAt: now.Add(time.Hour)}
	require.NoError(t, s.ClosePosition(ctx, trade))
	assert.ErrorIs(t, s.ClosePosition(ctx, trade), models.ErrNoPosition)

	_, err = s.GetPosition(ctx, "EVO")
	assert.ErrorIs(t, err, models.ErrNotFound)

	trades, err := s.ListTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 200.0, trades[0].PnL)
	assert.Equal(t, "EVO", trades[0].Ticker)
}

func TestWatchlistSettingsAndDeposits(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	st, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), st)

	st.MaxPositions = 5
	require.NoError(t, s.SaveSettings(ctx, st))
	st2, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st2.MaxPositions)

	require.NoError(t, s.UpsertWatchlist(ctx,
		models.WatchlistEntry{Ticker: "SINCH"},
		models.WatchlistEntry{Ticker: "EMBRAC B"},
		models.WatchlistEntry{Ticker: "EVO"},
	))
	require.NoError(t, s.RemoveWatchlist(ctx, "SINCH"))
	wl, err := s.Watchlist(ctx)
	require.NoError(t, err)
	require.Len(t, wl, 2)
	assert.Equal(t, "EMBRAC B", wl[0].Ticker)

	require.NoError(t, s.AddDeposit(ctx, models.Deposit{ID: "d2", Amount: 500, CreatedAt: time.Unix(200, 0)}))
	require.NoError(t, s.AddDeposit(ctx, models.Deposit{ID: "d1", Amount: 10000, CreatedAt: time.Unix(100, 0)}))
	deps, err := s.ListDeposits(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "d1", deps[0].ID)
}

func TestCooldownsCountersAndLock(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	until := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, s.SetCooldown(ctx, "EVO", until))
	require.NoError(t, s.SetCooldown(ctx, "OLD", time.Now().Add(-time.Hour)))
	cd, err := s.Cooldowns(ctx)
	require.NoError(t, err)
	require.Len(t, cd, 1)
	assert.True(t, cd["EVO"].Equal(until))

	for i := 0; i < 3; i++ {
		_, err := s.IncrCounter(ctx, "2024-03-01", "signals")
		require.NoError(t, err)
	}
	_, err = s.IncrCounter(ctx, "2024-03-02", "signals")
	require.NoError(t, err)
	c, err := s.Counters(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"signals": 3}, c)

	unlock, err := s.Lock(ctx, "positions", time.Minute)
	require.NoError(t, err)
	_, err = s.Lock(ctx, "positions", time.Minute)
	assert.ErrorIs(t, err, models.ErrBusy)
	unlock()
	unlock2, err := s.Lock(ctx, "positions", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestMarkOnceIsPerDayAndName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first, err := s.MarkOnce(ctx, "2024-05-06", "earnings:EVO")
	require.NoError(t, err)
	assert.True(t, first)
	again, err := s.MarkOnce(ctx, "2024-05-06", "earnings:EVO")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := s.MarkOnce(ctx, "2024-05-07", "earnings:EVO")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestNewsKeepsFirstSeenAndListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	t0 := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	require.NoError(t, s.SaveNews(ctx, models.NewsRecord{Ticker: "EVO", Headline: "Evolution höjer", Sentiment: models.SentimentNeutral}))
	s.now = func() time.Time { return t0.Add(time.Hour) }
	require.NoError(t, s.SaveNews(ctx, models.NewsRecord{Ticker: "SINCH", Headline: "Sinch vinner avtal", Sentiment: models.SentimentPositive}))
	require.NoError(t, s.SaveNews(ctx, models.NewsRecord{Ticker: "EVO", Headline: "Evolution höjer", Sentiment: models.SentimentPositive, SentimentScore: 0.8}))

	all, err := s.ListNews(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SINCH", all[0].Ticker)
	assert.Equal(t, "EVO", all[1].Ticker)
	assert.True(t, t0.Equal(all[1].CreatedAt), "first sighting is kept")
	assert.Equal(t, models.SentimentPositive, all[1].Sentiment)

	evo, err := s.ListNews(ctx, "EVO", 10)
	require.NoError(t, err)
	require.Len(t, evo, 1)

	limited, err := s.ListNews(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.Error(t, s.SaveNews(ctx, models.NewsRecord{Ticker: "EVO"}))
}
