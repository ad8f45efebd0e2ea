package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	positionsLock    = "positions"
	positionsLockTTL = 30 * time.Second

	reasonManual = "manual"
)

// ConfirmResult is what a confirmation changed.
type ConfirmResult struct {
	Signal   *models.Recommendation `json:"signal"`
	Position *models.Position       `json:"position,omitempty"`
	Trade    *models.ClosedTrade    `json:"trade,omitempty"`
}

// Confirmation applies the operator's decisions. It is the only place
// positions are opened or closed.
type Confirmation struct {
	store   domrepo.StateStore
	quotes  domrepo.QuoteSource
	sink    SignalSink
	metrics domrepo.Metrics
	hours   util.TradingHours
	now     func() time.Time
	newID   func() string
	log     *logger.Logger
}

func NewConfirmation(store domrepo.StateStore, quotes domrepo.QuoteSource, sink SignalSink, hours util.TradingHours, l *logger.Logger) *Confirmation {
	if sink == nil {
		sink = DiscardSink
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Confirmation{
		store:   store,
		quotes:  quotes,
		sink:    sink,
		metrics: nopMetrics{},
		hours:   hours,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     l.With("confirmation"),
	}
}

// SetMetrics injects the recorder.
func (c *Confirmation) SetMetrics(m domrepo.Metrics) {
	if m != nil {
		c.metrics = m
	}
}

// Confirm accepts a pending recommendation. A BUY opens a position with the
// signal's stop and target; a SELL closes the ticker's position and books
// the result. Price and quantity default to the signal's.
func (c *Confirmation) Confirm(ctx context.Context, req models.ConfirmSignalRequest) (*ConfirmResult, error) {
	unlock, err := c.store.Lock(ctx, positionsLock, positionsLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := c.store.GetSignal(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", req.ID, err)
	}
	if !rec.IsPending() {
		return nil, fmt.Errorf("signal %s is %s: %w", rec.ID, rec.Status, models.ErrSignalNotPending)
	}
	price := rec.Price
	if req.Price != nil {
		price = *req.Price
	}

	out := &ConfirmResult{Signal: rec}
	switch rec.Side {
	case models.SideBuy:
		qty := rec.Quantity
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		if out.Position, err = c.open(ctx, rec, price, qty); err != nil {
			return nil, err
		}
	case models.SideSell:
		pos, err := c.position(ctx, rec.Ticker)
		if err != nil {
			return nil, err
		}
		if out.Trade, err = c.close(ctx, *pos, price, string(rec.Kind)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("signal %s has unknown side %q", rec.ID, rec.Side)
	}

	if err := c.decide(ctx, rec, models.StatusConfirmed); err != nil {
		return nil, err
	}
	if _, err := c.store.IncrCounter(ctx, c.hours.DayKey(c.now()), counterConfirmed); err != nil {
		c.log.Warn("counter not updated", logger.Error(err))
	}
	c.log.Info("signal confirmed",
		logger.String("id", rec.ID),
		logger.String("ticker", rec.Ticker),
		logger.String("side", string(rec.Side)),
		logger.Float("price", price))
	return out, nil
}

func (c *Confirmation) open(ctx context.Context, rec *models.Recommendation, price float64, qty int) (*models.Position, error) {
	if qty < 1 {
		return nil, fmt.Errorf("quantity %d for %s: must be at least 1", qty, rec.Ticker)
	}
	if _, err := c.store.GetPosition(ctx, rec.Ticker); err == nil {
		return nil, fmt.Errorf("%s: %w", rec.Ticker, models.ErrPositionExists)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	st, err := c.store.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	open, err := c.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if len(open) >= st.MaxPositions {
		return nil, fmt.Errorf("%d of %d open: %w", len(open), st.MaxPositions, models.ErrNoSlots)
	}

	pos := models.Position{
		ID:         c.newID(),
		Ticker:     rec.Ticker,
		EntryPrice: price,
		Quantity:   qty,
		StopLoss:   rec.StopLoss,
		TakeProfit: rec.TakeProfit,
		SignalID:   rec.ID,
		OpenedAt:   c.now().UTC(),
	}
	if err := c.store.OpenPosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("open %s: %w", rec.Ticker, err)
	}
	return &pos, nil
}

func (c *Confirmation) position(ctx context.Context, ticker string) (*models.Position, error) {
	pos, err := c.store.GetPosition(ctx, ticker)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", ticker, models.ErrNoPosition)
	}
	return pos, err
}

func (c *Confirmation) close(ctx context.Context, pos models.Position, price float64, reason string) (*models.ClosedTrade, error) {
	trade := ClosedTradeAt(pos, price, reason, c.now())
	if err := c.store.ClosePosition(ctx, trade); err != nil {
		return nil, fmt.Errorf("close %s: %w", pos.Ticker, err)
	}
	c.metrics.RecordLastPrice(pos.Ticker, price)
	return &trade, nil
}

// Signals lists recommendations, newest first, optionally by status.
func (c *Confirmation) Signals(ctx context.Context, status models.SignalStatus, limit int) ([]*models.Recommendation, error) {
	return c.store.ListSignals(ctx, status, limit)
}

// ClosedTradeAt books pos as sold at price.
func ClosedTradeAt(pos models.Position, price float64, reason string, at time.Time) models.ClosedTrade {
	qty := decimal.NewFromInt(int64(pos.Quantity))
	entry := decimal.NewFromFloat(pos.EntryPrice)
	exit := decimal.NewFromFloat(price)
	t := models.ClosedTrade{Position: pos, ExitPrice: price, Reason: reason, ClosedAt: at.UTC()}
	t.PnL, _ = exit.Sub(entry).Mul(qty).Round(2).Float64()
	if entry.IsPositive() {
		t.PnLPct, _ = exit.Sub(entry).Div(entry).Round(4).Float64()
	}
	return t
}

func (c *Confirmation) decide(ctx context.Context, rec *models.Recommendation, status models.SignalStatus) error {
	at := c.now().UTC()
	rec.Status = status
	rec.DecidedAt = &at
	if err := c.store.SaveSignal(ctx, rec); err != nil {
		return fmt.Errorf("save signal %s: %w", rec.ID, err)
	}
	if err := c.sink.Update(ctx, rec); err != nil {
		c.log.Warn("status change not delivered", logger.String("id", rec.ID), logger.Error(err))
	}
	return nil
}

// Reject marks a pending recommendation as rejected.
func (c *Confirmation) Reject(ctx context.Context, id string) (*models.Recommendation, error) {
	rec, err := c.store.GetSignal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", id, err)
	}
	if !rec.IsPending() {
		return nil, fmt.Errorf("signal %s is %s: %w", rec.ID, rec.Status, models.ErrSignalNotPending)
	}
	if err := c.decide(ctx, rec, models.StatusRejected); err != nil {
		return nil, err
	}
	c.log.Info("signal rejected", logger.String("id", rec.ID), logger.String("ticker", rec.Ticker))
	return rec, nil
}

// ClosePosition sells a holding outside any recommendation, at the given
// price or the latest quote. A pending SELL for the ticker is superseded.
func (c *Confirmation) ClosePosition(ctx context.Context, req models.ClosePositionRequest) (*models.ClosedTrade, error) {
	ticker := util.NormalizeTicker(req.Ticker)
	unlock, err := c.store.Lock(ctx, positionsLock, positionsLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pos, err := c.position(ctx, ticker)
	if err != nil {
		return nil, err
	}
	var price float64
	switch {
	case req.Price != nil:
		price = *req.Price
	case c.quotes != nil:
		if price, err = c.quotes.LastPrice(ctx, ticker); err != nil {
			return nil, fmt.Errorf("quote %s: %w", ticker, err)
		}
	default:
		return nil, fmt.Errorf("no price given and no quote source for %s", ticker)
	}

	trade, err := c.close(ctx, *pos, price, reasonManual)
	if err != nil {
		return nil, err
	}
	if rec, err := c.store.PendingSignal(ctx, ticker, models.SideSell); err == nil {
		if err := c.decide(ctx, rec, models.StatusSuperseded); err != nil {
			c.log.Warn("pending sell not superseded", logger.String("id", rec.ID), logger.Error(err))
		}
	}
	c.log.Info("position closed",
		logger.String("ticker", ticker),
		logger.Float("price", price),
		logger.Float("pnl", trade.PnL))
	return trade, nil
}
