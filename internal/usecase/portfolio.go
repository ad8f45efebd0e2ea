package usecase

import (
	"context"
	"fmt"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/services/analytics"
	xhttp "Aktiemotor/pkg/http"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is the cash ledger: deposits, realized results and the
// marked-to-market view of open positions.
type Portfolio struct {
	store  domrepo.StateStore
	quotes domrepo.QuoteSource
	hours  util.TradingHours
	now    func() time.Time
	log    *logger.Logger
}

func NewPortfolio(store domrepo.StateStore, quotes domrepo.QuoteSource, hours util.TradingHours, l *logger.Logger) *Portfolio {
	if l == nil {
		l = logger.Nop()
	}
	return &Portfolio{store: store, quotes: quotes, hours: hours, now: time.Now, log: l.With("portfolio")}
}

// Equity is the capital base for sizing: deposits, or the paper balance
// before the first deposit, plus realized P&L.
func (p *Portfolio) Equity(ctx context.Context) (float64, error) {
	deposited, realized, err := p.totals(ctx)
	if err != nil {
		return 0, err
	}
	if deposited.IsZero() {
		st, err := p.store.Settings(ctx)
		if err != nil {
			return 0, fmt.Errorf("equity: %w", err)
		}
		deposited = decimal.NewFromFloat(st.PaperBalance)
	}
	f, _ := deposited.Add(realized).Float64()
	return f, nil
}

func (p *Portfolio) totals(ctx context.Context) (deposited, realized decimal.Decimal, err error) {
	deposits, err := p.store.ListDeposits(ctx)
	if err != nil {
		return deposited, realized, fmt.Errorf("deposits: %w", err)
	}
	for _, d := range deposits {
		deposited = deposited.Add(decimal.NewFromFloat(d.Amount))
	}
	trades, err := p.store.ListTrades(ctx, 0)
	if err != nil {
		return deposited, realized, fmt.Errorf("trades: %w", err)
	}
	for _, t := range trades {
		realized = realized.Add(decimal.NewFromFloat(t.PnL))
	}
	return deposited, realized, nil
}

// Summary marks every open position to the latest quote. A position whose
// quote cannot be fetched is valued at entry.
func (p *Portfolio) Summary(ctx context.Context) (*models.PortfolioSummary, error) {
	deposited, realized, err := p.totals(ctx)
	if err != nil {
		return nil, err
	}
	base := deposited
	if base.IsZero() {
		st, err := p.store.Settings(ctx)
		if err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		base = decimal.NewFromFloat(st.PaperBalance)
	}
	positions, err := p.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	invested, market := decimal.Zero, decimal.Zero
	out := make([]models.PositionValue, 0, len(positions))
	for _, pos := range positions {
		last := pos.EntryPrice
		if p.quotes != nil {
			if px, err := p.quotes.LastPrice(ctx, pos.Ticker); err == nil && px > 0 {
				last = px
			} else if err != nil {
				p.log.Warn("quote unavailable, valuing at entry", logger.String("ticker", pos.Ticker), logger.Error(err))
			}
		}
		qty := decimal.NewFromInt(int64(pos.Quantity))
		cost := decimal.NewFromFloat(pos.EntryPrice).Mul(qty)
		value := decimal.NewFromFloat(last).Mul(qty)
		invested = invested.Add(cost)
		market = market.Add(value)

		pv := models.PositionValue{Position: pos, LastPrice: last, PnLPct: round4(pos.PnLPct(last))}
		pv.MarketValue, _ = value.Round(2).Float64()
		pv.UnrealizedPnL, _ = value.Sub(cost).Round(2).Float64()
		out = append(out, pv)
	}

	cash := base.Add(realized).Sub(invested)
	total := cash.Add(market)
	s := &models.PortfolioSummary{Positions: out}
	s.Deposited, _ = deposited.Round(2).Float64()
	s.RealizedPnL, _ = realized.Round(2).Float64()
	s.Invested, _ = invested.Round(2).Float64()
	s.MarketValue, _ = market.Round(2).Float64()
	s.UnrealizedPnL, _ = market.Sub(invested).Round(2).Float64()
	s.Cash, _ = cash.Round(2).Float64()
	s.TotalValue, _ = total.Round(2).Float64()
	if base.IsPositive() {
		s.TotalPct, _ = total.Sub(base).Div(base).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}

	counters, err := p.store.Counters(ctx, p.hours.DayKey(p.now()))
	if err != nil {
		p.log.Warn("counters unavailable", logger.Error(err))
	} else {
		s.Counters = counters
	}
	return s, nil
}

func (p *Portfolio) AddDeposit(ctx context.Context, amount float64, note string) (*models.Deposit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive, got %.2f: %w", amount, models.ErrInvalidInput)
	}
	d := models.Deposit{ID: uuid.NewString(), Amount: amount, Note: note, CreatedAt: p.now().UTC()}
	if err := p.store.AddDeposit(ctx, d); err != nil {
		return nil, fmt.Errorf("add deposit: %w", err)
	}
	p.log.Info("deposit added", logger.Float("amount", amount))
	return &d, nil
}

func (p *Portfolio) Deposits(ctx context.Context) ([]models.Deposit, error) {
	return p.store.ListDeposits(ctx)
}

func (p *Portfolio) Trades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	return p.store.ListTrades(ctx, limit)
}

// News lists stored headlines newest first, for one ticker or all.
func (p *Portfolio) News(ctx context.Context, ticker string, limit int) ([]models.NewsRecord, error) {
	return p.store.ListNews(ctx, util.NormalizeTicker(ticker), limit)
}

func (p *Portfolio) Positions(ctx context.Context) ([]models.Position, error) {
	return p.store.ListPositions(ctx)
}

func (p *Portfolio) Settings(ctx context.Context) (models.Settings, error) {
	return p.store.Settings(ctx)
}

// UpdateSettings merges a partial update into the stored settings.
func (p *Portfolio) UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (models.Settings, error) {
	cur, err := p.store.Settings(ctx)
	if err != nil {
		return cur, fmt.Errorf("settings: %w", err)
	}
	next := req.Apply(cur)
	if err := xhttp.ValidateStruct(&next); err != nil {
		return cur, fmt.Errorf("%v: %w", err, models.ErrInvalidInput)
	}
	if err := p.store.SaveSettings(ctx, next); err != nil {
		return cur, fmt.Errorf("save settings: %w", err)
	}
	p.log.Info("settings updated",
		logger.Int("max_positions", next.MaxPositions),
		logger.Int("signal_threshold", next.SignalThreshold),
		logger.Int("sell_threshold", next.SellThreshold))
	return next, nil
}

// Size prices an allocation against current equity and settings. A
// positive price also yields the share count.
func (p *Portfolio) Size(ctx context.Context, confidence int, atrPct, price float64) (*models.SizeQuote, error) {
	st, err := p.store.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	equity, err := p.Equity(ctx)
	if err != nil {
		return nil, err
	}
	params := analytics.SizingParams{
		Equity:          equity,
		CashBuffer:      st.CashBuffer,
		MaxPositions:    st.MaxPositions,
		MaxPositionSize: st.MaxPositionSize,
	}
	var atr *float64
	if atrPct > 0 {
		atr = &atrPct
	}
	value := analytics.PositionSize(confidence, atr, params)
	slot, _ := analytics.SlotCap(params).Float64()
	return &models.SizeQuote{
		Confidence: confidence,
		SlotCap:    roundMoney(slot),
		Value:      value,
		Quantity:   analytics.Quantity(value, price),
		Equity:     equity,
	}, nil
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func roundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
