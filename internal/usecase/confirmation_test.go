package usecase

import (
	"context"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfirmation(t *testing.T, quotes fakeQuotes) (*Confirmation, *repository.CacheStateStore, *fakeSink) {
	t.Helper()
	store := newTestStore(t)
	sink := &fakeSink{}
	return NewConfirmation(store, quotes, sink, testHours(t), nil), store, sink
}

func pendingSignal(t *testing.T, store *repository.CacheStateStore, id, ticker string, side models.Side) *models.Recommendation {
	t.Helper()
	rec := &models.Recommendation{
		ID: id, Ticker: ticker, Side: side, Kind: models.KindRoutine, Status: models.StatusPending,
		Price: 100, Quantity: 10, StopLoss: 95, TakeProfit: 110, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveSignal(context.Background(), rec))
	return rec
}

func TestConfirmBuyOpensPosition(t *testing.T) {
	ctx := context.Background()
	c, store, sink := newConfirmation(t, nil)
	pendingSignal(t, store, "b1", "EVO", models.SideBuy)

	res, err := c.Confirm(ctx, models.ConfirmSignalRequest{ID: "b1"})
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, "EVO", res.Position.Ticker)
	assert.Equal(t, 100.0, res.Position.EntryPrice)
	assert.Equal(t, 10, res.Position.Quantity)
	assert.Equal(t, 95.0, res.Position.StopLoss)
	assert.Equal(t, 110.0, res.Position.TakeProfit)
	assert.Equal(t, "b1", res.Position.SignalID)
	assert.Equal(t, models.StatusConfirmed, res.Signal.Status)
	require.NotNil(t, res.Signal.DecidedAt)

	stored, err := store.GetSignal(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	_, err = store.PendingSignal(ctx, "EVO", models.SideBuy)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.Len(t, sink.updated, 1)
	assert.Empty(t, sink.emitted)

	counters, err := store.Counters(ctx, testHours(t).DayKey(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters[counterConfirmed])
}

func TestConfirmBuyOverrides(t *testing.T) {
	c, store, _ := newConfirmation(t, nil)
	pendingSignal(t, store, "b1", "EVO", models.SideBuy)

	res, err := c.Confirm(context.Background(), models.ConfirmSignalRequest{ID: "b1", Price: ptr(98.5), Quantity: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, 98.5, res.Position.EntryPrice)
	assert.Equal(t, 7, res.Position.Quantity)
}

func TestConfirmBuyRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("position exists", func(t *testing.T) {
		c, store, _ := newConfirmation(t, nil)
		require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "EVO", EntryPrice: 90, Quantity: 1}))
		pendingSignal(t, store, "b1", "EVO", models.SideBuy)
		_, err := c.Confirm(ctx, models.ConfirmSignalRequest{ID: "b1"})
		assert.ErrorIs(t, err, models.ErrPositionExists)
	})

	t.Run("no free slot", func(t *testing.T) {
		c, store, _ := newConfirmation(t, nil)
		st := models.DefaultSettings()
		st.MaxPositions = 1
		require.NoError(t, store.SaveSettings(ctx, st))
		require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "SINCH", EntryPrice: 30, Quantity: 1}))
		pendingSignal(t, store, "b1", "EVO", models.SideBuy)
		_, err := c.Confirm(ctx, models.ConfirmSignalRequest{ID: "b1"})
		assert.ErrorIs(t, err, models.ErrNoSlots)

		stored, err := store.GetSignal(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)
	})

	t.Run("not pending", func(t *testing.T) {
		c, store, _ := newConfirmation(t, nil)
		pendingSignal(t, store, "b1", "EVO", models.SideBuy)
		_, err := c.Reject(ctx, "b1")
		require.NoError(t, err)
		_, err = c.Confirm(ctx, models.ConfirmSignalRequest{ID: "b1"})
		assert.ErrorIs(t, err, models.ErrSignalNotPending)
	})

	t.Run("unknown id", func(t *testing.T) {
		c, _, _ := newConfirmation(t, nil)
		_, err := c.Confirm(ctx, models.ConfirmSignalRequest{ID: "missing"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestConfirmSellBooksTrade(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newConfirmation(t, nil)
	require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "EVO", EntryPrice: 100, Quantity: 10}))
	pendingSignal(t, store, "s1", "EVO", models.SideSell)

	res, err := c.Confirm(ctx, models.ConfirmSignalRequest{ID: "s1", Price: ptr(110.0)})
	require.NoError(t, err)
	require.NotNil(t, res.Trade)
	assert.Equal(t, 100.0, res.Trade.PnL)
	assert.Equal(t, 0.1, res.Trade.PnLPct)
	assert.Equal(t, string(models.KindRoutine), res.Trade.Reason)

	_, err = store.GetPosition(ctx, "EVO")
	assert.ErrorIs(t, err, models.ErrNotFound)
	trades, err := store.ListTrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 110.0, trades[0].ExitPrice)
}

func TestConfirmSellWithoutPosition(t *testing.T) {
	c, store, _ := newConfirmation(t, nil)
	pendingSignal(t, store, "s1", "EVO", models.SideSell)
	_, err := c.Confirm(context.Background(), models.ConfirmSignalRequest{ID: "s1"})
	assert.ErrorIs(t, err, models.ErrNoPosition)
}

func TestRejectMarksSignal(t *testing.T) {
	ctx := context.Background()
	c, store, sink := newConfirmation(t, nil)
	pendingSignal(t, store, "b1", "EVO", models.SideBuy)

	rec, err := c.Reject(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rec.Status)
	require.Len(t, sink.updated, 1)

	_, err = c.Reject(ctx, "b1")
	assert.ErrorIs(t, err, models.ErrSignalNotPending)
}

func TestClosePositionAtQuoteSupersedesPendingSell(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newConfirmation(t, fakeQuotes{"EVO": 90})
	require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "EVO", EntryPrice: 100, Quantity: 4}))
	pendingSignal(t, store, "s1", "EVO", models.SideSell)

	trade, err := c.ClosePosition(ctx, models.ClosePositionRequest{Ticker: "evo"})
	require.NoError(t, err)
	assert.Equal(t, 90.0, trade.ExitPrice)
	assert.Equal(t, -40.0, trade.PnL)
	assert.Equal(t, reasonManual, trade.Reason)

	rec, err := store.GetSignal(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuperseded, rec.Status)
}

func TestClosePositionErrors(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newConfirmation(t, nil)
	_, err := c.ClosePosition(ctx, models.ClosePositionRequest{Ticker: "EVO", Price: ptr(10.0)})
	assert.ErrorIs(t, err, models.ErrNoPosition)

	require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "EVO", EntryPrice: 100, Quantity: 4}))
	_, err = c.ClosePosition(ctx, models.ClosePositionRequest{Ticker: "EVO"})
	assert.Error(t, err)
}

func TestClosedTradeAt(t *testing.T) {
	at := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	pos := models.Position{Ticker: "SINCH", EntryPrice: 33.3, Quantity: 3}
	tr := ClosedTradeAt(pos, 36.63, "take_profit", at)
	assert.Equal(t, 9.99, tr.PnL)
	assert.Equal(t, 0.1, tr.PnLPct)
	assert.Equal(t, at, tr.ClosedAt)

	zero := ClosedTradeAt(models.Position{Ticker: "X", Quantity: 1}, 10, "manual", at)
	assert.Zero(t, zero.PnLPct)
}
