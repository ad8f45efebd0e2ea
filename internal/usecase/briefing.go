package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"
)

// Briefing builds the morning and evening pushes from the ledger, the day's
// counters, active cooldowns and the report calendar.
type Briefing struct {
	store     domrepo.StateStore
	portfolio *Portfolio
	earnings  domrepo.EarningsCalendar
	hours     util.TradingHours
	now       func() time.Time
	log       *logger.Logger
}

// NewBriefing accepts a nil earnings calendar; the morning push then lists
// no reports.
func NewBriefing(store domrepo.StateStore, portfolio *Portfolio, earnings domrepo.EarningsCalendar, hours util.TradingHours, l *logger.Logger) *Briefing {
	if l == nil {
		l = logger.Nop()
	}
	return &Briefing{
		store:     store,
		portfolio: portfolio,
		earnings:  earnings,
		hours:     hours,
		now:       time.Now,
		log:       l.With("briefing"),
	}
}

func (b *Briefing) base(ctx context.Context) (*models.DailyBriefing, error) {
	summary, err := b.portfolio.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &models.DailyBriefing{
		TotalValue:    summary.TotalValue,
		TotalPct:      summary.TotalPct,
		OpenPositions: len(summary.Positions),
		Signals:       summary.Counters[counterSignals],
		Trades:        summary.Counters[counterConfirmed],
	}, nil
}

// Morning adds the tickers paused by a cooldown and the watched or held
// tickers reporting today.
func (b *Briefing) Morning(ctx context.Context) (*models.DailyBriefing, error) {
	d, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	now := b.now()

	cooldowns, err := b.store.Cooldowns(ctx)
	if err != nil {
		return nil, fmt.Errorf("cooldowns: %w", err)
	}
	for ticker := range cooldowns {
		if cooldowns.Active(ticker, now) {
			d.Paused = append(d.Paused, ticker)
		}
	}
	sort.Strings(d.Paused)

	if b.earnings == nil {
		return d, nil
	}
	tickers, err := b.tracked(ctx)
	if err != nil {
		return nil, err
	}
	today := b.hours.At(now, 0)
	for _, t := range tickers {
		at, err := b.earnings.NextEarnings(ctx, t)
		if err != nil {
			b.log.Debug("earnings date unavailable", logger.String("ticker", t), logger.Error(err))
			continue
		}
		if at != nil && util.WithinDays(today, *at, 0) {
			d.ReportsToday = append(d.ReportsToday, t)
		}
	}
	return d, nil
}

// Evening is the day's totals.
func (b *Briefing) Evening(ctx context.Context) (*models.DailyBriefing, error) {
	return b.base(ctx)
}

// tracked lists watched and held tickers once each, sorted.
func (b *Briefing) tracked(ctx context.Context) ([]string, error) {
	watchlist, err := b.store.Watchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	positions, err := b.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	seen := make(map[string]bool, len(watchlist)+len(positions))
	var out []string
	for _, w := range watchlist {
		if !seen[w.Ticker] {
			seen[w.Ticker] = true
			out = append(out, w.Ticker)
		}
	}
	for _, p := range positions {
		if !seen[p.Ticker] {
			seen[p.Ticker] = true
			out = append(out, p.Ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}
