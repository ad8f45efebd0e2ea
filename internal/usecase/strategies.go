package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/services/analytics"
	"Aktiemotor/pkg/config"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"
)

// UniverseEntry is a ticker the daily scan may promote to the watchlist.
type UniverseEntry struct {
	Ticker  string `yaml:"ticker" validate:"required"`
	Company string `yaml:"company"`
}

// StrategyFile is the layout of strategies.yaml.
type StrategyFile struct {
	Watchlist  []models.WatchlistEntry  `yaml:"watchlist" validate:"dive"`
	Universe   []UniverseEntry          `yaml:"universe" validate:"dive"`
	Thresholds analytics.ThresholdTable `yaml:"thresholds"`
}

const sourceConfig = "config"

// Strategies holds the per-ticker strategy file and seeds the watchlist
// from it. Entries added by the scanner are left alone on reload.
type Strategies struct {
	path  string
	store domrepo.WatchlistStore
	now   func() time.Time
	log   *logger.Logger

	mu   sync.RWMutex
	file StrategyFile
}

func NewStrategies(path string, store domrepo.WatchlistStore, l *logger.Logger) *Strategies {
	if l == nil {
		l = logger.Nop()
	}
	s := &Strategies{path: path, store: store, now: time.Now, log: l.With("strategies")}
	s.file.Thresholds = analytics.DefaultThresholdTable()
	return s
}

// Load reads the file and upserts its watchlist seeds.
func (s *Strategies) Load(ctx context.Context) error {
	// Scalars decode over the defaults so an explicit zero survives.
	f := StrategyFile{Thresholds: analytics.DefaultThresholdTable()}
	f.Thresholds.BuyOffsets, f.Thresholds.SellOffsets = nil, nil
	if err := config.LoadYAML(s.path, &f); err != nil {
		return err
	}
	f.Thresholds = f.Thresholds.WithDefaults()
	if err := f.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	for i := range f.Watchlist {
		f.Watchlist[i].Ticker = util.NormalizeTicker(f.Watchlist[i].Ticker)
	}
	for i := range f.Universe {
		f.Universe[i].Ticker = util.NormalizeTicker(f.Universe[i].Ticker)
	}

	s.mu.Lock()
	s.file = f
	s.mu.Unlock()

	if err := s.seed(ctx, f.Watchlist); err != nil {
		return fmt.Errorf("seed watchlist: %w", err)
	}
	s.log.Info("strategies loaded",
		logger.Int("watchlist", len(f.Watchlist)),
		logger.Int("universe", len(f.Universe)))
	return nil
}

func (s *Strategies) seed(ctx context.Context, seeds []models.WatchlistEntry) error {
	if s.store == nil || len(seeds) == 0 {
		return nil
	}
	current, err := s.store.Watchlist(ctx)
	if err != nil {
		return err
	}
	added := make(map[string]time.Time, len(current))
	for _, e := range current {
		added[e.Ticker] = e.AddedAt
	}
	now := s.now().UTC()
	out := make([]models.WatchlistEntry, 0, len(seeds))
	for _, e := range seeds {
		e.Source = sourceConfig
		e.AddedAt = now
		if at, ok := added[e.Ticker]; ok && !at.IsZero() {
			e.AddedAt = at
		}
		out = append(out, e)
	}
	return s.store.UpsertWatchlist(ctx, out...)
}

// Watch reloads the file whenever it changes until ctx is done. A file that
// fails to parse keeps the previous strategies.
func (s *Strategies) Watch(ctx context.Context) error {
	err := config.WatchFile(ctx, s.path, 500*time.Millisecond, func() {
		if err := s.Load(ctx); err != nil {
			s.log.Warn("strategies reload failed", logger.Error(err))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Watchlist returns the current watchlist, seeds and scanner additions alike.
func (s *Strategies) Watchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	return s.store.Watchlist(ctx)
}

func (s *Strategies) Thresholds() analytics.ThresholdTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Thresholds
}

// Universe lists the scan universe followed by any seed not already in it.
func (s *Strategies) Universe() []UniverseEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.file.Universe))
	out := make([]UniverseEntry, 0, len(s.file.Universe)+len(s.file.Watchlist))
	for _, u := range s.file.Universe {
		if seen[u.Ticker] {
			continue
		}
		seen[u.Ticker] = true
		out = append(out, u)
	}
	for _, w := range s.file.Watchlist {
		if !seen[w.Ticker] {
			seen[w.Ticker] = true
			out = append(out, UniverseEntry{Ticker: w.Ticker, Company: w.Company})
		}
	}
	return out
}
