package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/notify"
	"Aktiemotor/internal/services/analytics"
	"Aktiemotor/internal/services/features"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"

	"golang.org/x/sync/errgroup"
)

const (
	scanLock    = "scan"
	scanLockTTL = 30 * time.Minute
	scanTop     = 10

	sourceScan      = "scan"
	sourceDiscovery = "discovery"
	counterDiscover = "discoveries"
)

// Scanner rates the universe and rotates the watchlist toward stronger
// candidates. Tickers with an open position are never removed.
type Scanner struct {
	store      domrepo.StateStore
	bars       domrepo.BarSource
	strategies *Strategies
	notifier   domrepo.Notifier
	hours      util.TradingHours
	rng        domrepo.Range
	index      string
	workers    int
	now        func() time.Time
	log        *logger.Logger
}

func NewScanner(store domrepo.StateStore, bars domrepo.BarSource, strategies *Strategies, notifier domrepo.Notifier, hours util.TradingHours, l *logger.Logger) *Scanner {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Scanner{
		store:      store,
		bars:       bars,
		strategies: strategies,
		notifier:   notifier,
		hours:      hours,
		rng:        domrepo.DefaultRange(),
		index:      "^OMX",
		workers:    4,
		now:        time.Now,
		log:        l.With("scanner"),
	}
}

// SetIndex sets the benchmark discovery measures relative strength against.
func (s *Scanner) SetIndex(symbol string) {
	if symbol != "" {
		s.index = symbol
	}
}

// Scan scores every universe and watchlist ticker, applies the planned
// watchlist changes and pushes a summary.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanReport, error) {
	unlock, err := s.store.Lock(ctx, scanLock, scanLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	watchlist, err := s.store.Watchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	current := make(map[string]models.WatchlistEntry, len(watchlist))
	onList := make(map[string]bool, len(watchlist))
	for _, w := range watchlist {
		current[w.Ticker] = w
		onList[w.Ticker] = true
	}
	protected := make(map[string]bool, len(positions))
	for _, p := range positions {
		protected[p.Ticker] = true
	}

	companies := make(map[string]string)
	tickers := make([]string, 0)
	if s.strategies != nil {
		for _, u := range s.strategies.Universe() {
			companies[u.Ticker] = u.Company
			tickers = append(tickers, u.Ticker)
		}
	}
	for _, w := range watchlist {
		if _, ok := companies[w.Ticker]; !ok {
			companies[w.Ticker] = w.Company
			tickers = append(tickers, w.Ticker)
		}
	}

	scored, err := s.score(ctx, tickers)
	if err != nil {
		return nil, err
	}
	changes := analytics.PlanWatchlistRotation(scored, onList, protected)
	if err := s.apply(ctx, scored, current, companies, changes); err != nil {
		return nil, err
	}

	report := &models.ScanReport{Scanned: len(scored), Changes: changes}
	ranked := make([]models.Candidate, 0, len(scored))
	for _, c := range scored {
		if c.Qualified {
			report.Qualified++
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > scanTop {
		ranked = ranked[:scanTop]
	}
	report.Top = ranked

	if _, err := s.store.IncrCounter(ctx, s.hours.DayKey(s.now()), counterScans); err != nil {
		s.log.Warn("counter not updated", logger.Error(err))
	}
	if err := s.notifier.Notify(ctx, notify.ForScan(report)); err != nil {
		s.log.Warn("scan summary not pushed", logger.Error(err))
	}
	s.log.Info("scan done",
		logger.Int("scanned", report.Scanned),
		logger.Int("qualified", report.Qualified),
		logger.Int("changes", len(changes)))
	return report, nil
}

// score fetches and rates tickers concurrently. A ticker whose history
// cannot be fetched is kept as an unqualified candidate.
func (s *Scanner) score(ctx context.Context, tickers []string) ([]models.Candidate, error) {
	out := make([]models.Candidate, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	var mu sync.Mutex
	failed := 0
	for i, t := range tickers {
		i, t := i, t
		g.Go(func() error {
			bars, err := s.bars.DailyBars(gctx, t, s.rng)
			if err != nil {
				s.log.Warn("scan history unavailable", logger.String("ticker", t), logger.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				out[i] = models.Candidate{Ticker: t, Reasons: []string{"Filtered: history unavailable"}}
				return nil
			}
			out[i] = analytics.ScoreCandidate(t, bars)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(tickers) > 0 && failed == len(tickers) {
		return nil, fmt.Errorf("scan: no history for any of %d tickers", len(tickers))
	}
	return out, ctx.Err()
}

func (s *Scanner) apply(ctx context.Context, scored []models.Candidate, current map[string]models.WatchlistEntry, companies map[string]string, changes []models.WatchlistChange) error {
	byTicker := make(map[string]models.Candidate, len(scored))
	for _, c := range scored {
		byTicker[c.Ticker] = c
	}

	removed := make([]string, 0, len(changes))
	upserts := make([]models.WatchlistEntry, 0, len(current)+len(changes))
	dropped := make(map[string]bool, len(changes))
	for _, ch := range changes {
		removed = append(removed, ch.Removed)
		dropped[ch.Removed] = true

		cand := byTicker[ch.Added]
		strategy, cfg := analytics.DeriveStrategy(cand.Snapshot)
		upserts = append(upserts, models.WatchlistEntry{
			Ticker:   ch.Added,
			Company:  companies[ch.Added],
			Strategy: strategy,
			Config:   cfg,
			Source:   sourceScan,
			Score:    cand.Score,
			AddedAt:  s.now().UTC(),
		})
		s.log.Info("watchlist rotated",
			logger.String("added", ch.Added),
			logger.Int("added_score", ch.AddedScore),
			logger.String("removed", ch.Removed),
			logger.Int("removed_score", ch.RemovedScore))
	}
	for ticker, w := range current {
		if dropped[ticker] {
			continue
		}
		if c, ok := byTicker[ticker]; ok && c.Score != w.Score {
			w.Score = c.Score
			upserts = append(upserts, w)
		}
	}

	if err := s.store.RemoveWatchlist(ctx, removed...); err != nil {
		return fmt.Errorf("remove from watchlist: %w", err)
	}
	if len(upserts) == 0 {
		return nil
	}
	if err := s.store.UpsertWatchlist(ctx, upserts...); err != nil {
		return fmt.Errorf("update watchlist: %w", err)
	}
	return nil
}

// Discover rebuilds the watchlist from the whole universe, ranking each
// ticker by candidate quality and how close it is to a buy. Held tickers are
// always kept and the rest of the list is the best of the universe.
func (s *Scanner) Discover(ctx context.Context) (*models.DiscoveryReport, error) {
	unlock, err := s.store.Lock(ctx, scanLock, scanLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	watchlist, err := s.store.Watchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	current := make(map[string]models.WatchlistEntry, len(watchlist))
	for _, w := range watchlist {
		current[w.Ticker] = w
	}
	held := make(map[string]bool, len(positions))
	for _, p := range positions {
		held[p.Ticker] = true
	}

	companies := make(map[string]string)
	tickers := make([]string, 0)
	add := func(ticker, company string) {
		if _, ok := companies[ticker]; ok {
			return
		}
		companies[ticker] = company
		tickers = append(tickers, ticker)
	}
	if s.strategies != nil {
		for _, u := range s.strategies.Universe() {
			add(u.Ticker, u.Company)
		}
	}
	for _, p := range positions {
		add(p.Ticker, current[p.Ticker].Company)
	}

	report := &models.DiscoveryReport{Regime: models.RegimeNeutral}
	index, err := s.bars.DailyBars(ctx, s.index, s.rng)
	if err != nil {
		s.log.Warn("index unavailable, discovery runs without relative strength", logger.Error(err))
		index = nil
	} else {
		report.Regime = analytics.ClassifyRegime(index).Regime
	}

	ranked, filtered, failed, err := s.rank(ctx, tickers, index, report.Regime, current, held)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(ranked)
	report.Filtered = filtered
	report.Failed = failed
	for i := range ranked {
		ranked[i].Company = companies[ranked[i].Ticker]
	}
	if len(ranked) == 0 {
		s.log.Warn("discovery found nothing to rank, watchlist left as is")
		return report, nil
	}
	report.Selected = analytics.SelectDiscovery(ranked, analytics.DiscoveryWatchlistSize)

	keep := make(map[string]bool, len(report.Selected)+len(held))
	for t := range held {
		keep[t] = true
	}
	upserts := make([]models.WatchlistEntry, 0, len(report.Selected))
	for _, c := range report.Selected {
		keep[c.Ticker] = true
		if w, ok := current[c.Ticker]; ok {
			w.Score = int(math.Round(c.Combined))
			upserts = append(upserts, w)
			continue
		}
		strategy, cfg := analytics.DeriveStrategy(c.Snapshot)
		upserts = append(upserts, models.WatchlistEntry{
			Ticker:   c.Ticker,
			Company:  c.Company,
			Strategy: strategy,
			Config:   cfg,
			Source:   sourceDiscovery,
			Score:    int(math.Round(c.Combined)),
			AddedAt:  s.now().UTC(),
		})
		report.Added = append(report.Added, c.Ticker)
	}
	for t := range current {
		if !keep[t] {
			report.Removed = append(report.Removed, t)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)

	if err := s.store.RemoveWatchlist(ctx, report.Removed...); err != nil {
		return nil, fmt.Errorf("remove from watchlist: %w", err)
	}
	if err := s.store.UpsertWatchlist(ctx, upserts...); err != nil {
		return nil, fmt.Errorf("update watchlist: %w", err)
	}

	if _, err := s.store.IncrCounter(ctx, s.hours.DayKey(s.now()), counterDiscover); err != nil {
		s.log.Warn("counter not updated", logger.Error(err))
	}
	if err := s.notifier.Notify(ctx, notify.ForDiscovery(report)); err != nil {
		s.log.Warn("discovery summary not pushed", logger.Error(err))
	}
	s.log.Info("discovery done",
		logger.String("regime", string(report.Regime)),
		logger.Int("scanned", report.Scanned),
		logger.Int("filtered", report.Filtered),
		logger.Int("watchlist", len(report.Selected)),
		logger.Int("added", len(report.Added)),
		logger.Int("removed", len(report.Removed)))
	return report, nil
}

// rank scores tickers for discovery concurrently. Unqualified tickers are
// counted as filtered, fetch failures as failed.
func (s *Scanner) rank(ctx context.Context, tickers []string, index []models.Bar, regime models.MarketRegime, current map[string]models.WatchlistEntry, held map[string]bool) ([]models.DiscoveryCandidate, int, int, error) {
	var (
		mu       sync.Mutex
		out      []models.DiscoveryCandidate
		filtered int
		failed   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, t := range tickers {
		t := t
		g.Go(func() error {
			bars, err := s.bars.DailyBars(gctx, t, s.rng)
			if err != nil {
				s.log.Warn("discovery history unavailable", logger.String("ticker", t), logger.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			cand := analytics.ScoreCandidate(t, bars)
			if !cand.Qualified || cand.Score <= 0 {
				s.log.Debug("discovery filtered", logger.String("ticker", t), logger.Any("reasons", cand.Reasons))
				mu.Lock()
				filtered++
				mu.Unlock()
				return nil
			}
			var rs *float64
			if index != nil {
				rs = features.RelativeStrength(bars, index, features.DefaultRSWindow)
			}
			buyPre, _ := analytics.ScoreBuy(cand.Snapshot, analytics.SignalContext{Regime: regime, RelativeStrength: rs})
			_, watched := current[t]
			dc := models.DiscoveryCandidate{
				Ticker:    t,
				Candidate: cand.Score,
				BuyPre:    buyPre,
				Combined:  analytics.DiscoveryScore(cand.Score, buyPre, watched),
				Held:      held[t],
				Reasons:   cand.Reasons,
				Snapshot:  cand.Snapshot,
			}
			if watched {
				dc.Reasons = append(append([]string(nil), cand.Reasons...), "Already on the watchlist (+5p)")
			}
			mu.Lock()
			out = append(out, dc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}
	if len(tickers) > 0 && failed == len(tickers) {
		return nil, 0, 0, fmt.Errorf("discovery: no history for any of %d tickers", len(tickers))
	}
	return out, filtered, failed, ctx.Err()
}
