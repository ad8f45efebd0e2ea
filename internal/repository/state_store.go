package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	pkgcache "Aktiemotor/pkg/cache"
	applogger "Aktiemotor/pkg/logger"

	"github.com/google/uuid"
)

const (
	signalRetention  = 90 * 24 * time.Hour
	counterRetention = 72 * time.Hour
	newsRetention    = 30 * 24 * time.Hour
)

// CacheStateStore keeps the engine's mutable state in a pkg/cache.Service.
// Redis in production, MemoryCache in tests and single-process runs.
//
// Key layout:
//
//	signal:<id>              Recommendation
//	pending:<ticker>:<side>  id of the pending recommendation
//	position:<ticker>        Position
//	trade:<closed unix ns>:<id>
//	deposit:<id>
//	watchlist:<ticker>
//	settings
//	cooldown:<ticker>        until, expiring with it
//	counter:<day>:<name>
//	once:<day>:<name>
//	news:<ticker>:<headline id>
type CacheStateStore struct {
	c   pkgcache.Service
	l   *applogger.Logger
	now func() time.Time
}

func NewCacheStateStore(c pkgcache.Service) *CacheStateStore {
	return &CacheStateStore{c: c, l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CacheStateStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l.With("state_store")
	}
}

func (s *CacheStateStore) get(ctx context.Context, key string, dest interface{}) error {
	if err := s.c.Get(ctx, key, dest); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return models.ErrNotFound
		}
		return fmt.Errorf("state get %s: %w", key, err)
	}
	return nil
}

// --- signals ---

func signalKey(id string) string { return "signal:" + id }

func pendingKey(ticker string, side models.Side) string {
	return "pending:" + ticker + ":" + string(side)
}

func (s *CacheStateStore) SaveSignal(ctx context.Context, rec *models.Recommendation) error {
	if rec == nil || rec.ID == "" {
		return errors.New("save signal: missing id")
	}
	if err := s.c.Set(ctx, signalKey(rec.ID), rec, signalRetention); err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	pk := pendingKey(rec.Ticker, rec.Side)
	if rec.IsPending() {
		return s.c.Set(ctx, pk, rec.ID, signalRetention)
	}
	var current string
	if err := s.c.Get(ctx, pk, &current); err == nil && current == rec.ID {
		return s.c.Delete(ctx, pk)
	}
	return nil
}

func (s *CacheStateStore) GetSignal(ctx context.Context, id string) (*models.Recommendation, error) {
	var rec models.Recommendation
	if err := s.get(ctx, signalKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSignals returns signals newest first. An empty status lists all.
func (s *CacheStateStore) ListSignals(ctx context.Context, status models.SignalStatus, limit int) ([]*models.Recommendation, error) {
	all, err := pkgcache.ScanTyped[models.Recommendation](ctx, s.c, "signal:*")
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	out := make([]*models.Recommendation, 0, len(all))
	for _, r := range all {
		if status != "" && r.Status != status {
			continue
		}
		r := r
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *CacheStateStore) PendingSignal(ctx context.Context, ticker string, side models.Side) (*models.Recommendation, error) {
	var id string
	if err := s.get(ctx, pendingKey(ticker, side), &id); err != nil {
		return nil, err
	}
	rec, err := s.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.IsPending() {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

// --- positions and ledger ---

func positionKey(ticker string) string { return "position:" + ticker }

func (s *CacheStateStore) OpenPosition(ctx context.Context, p models.Position) error {
	ok, err := s.c.Exists(ctx, positionKey(p.Ticker))
	if err != nil {
		return fmt.Errorf("open position: %w", err)
	}
	if ok {
		return models.ErrPositionExists
	}
	return s.c.Set(ctx, positionKey(p.Ticker), p, 0)
}

func (s *CacheStateStore) GetPosition(ctx context.Context, ticker string) (*models.Position, error) {
	var p models.Position
	if err := s.get(ctx, positionKey(ticker), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CacheStateStore) ListPositions(ctx context.Context) ([]models.Position, error) {
	all, err := pkgcache.ScanTyped[models.Position](ctx, s.c, "position:*")
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	out := make([]models.Position, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (s *CacheStateStore) ClosePosition(ctx context.Context, trade models.ClosedTrade) error {
	ok, err := s.c.Exists(ctx, positionKey(trade.Ticker))
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if !ok {
		return models.ErrNoPosition
	}
	key := fmt.Sprintf("trade:%020d:%s", trade.ClosedAt.UnixNano(), trade.ID)
	if err := s.c.Set(ctx, key, trade, 0); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	return s.c.Delete(ctx, positionKey(trade.Ticker))
}

func (s *CacheStateStore) AddDeposit(ctx context.Context, d models.Deposit) error {
	return s.c.Set(ctx, "deposit:"+d.ID, d, 0)
}

func (s *CacheStateStore) ListDeposits(ctx context.Context) ([]models.Deposit, error) {
	all, err := pkgcache.ScanTyped[models.Deposit](ctx, s.c, "deposit:*")
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	out := make([]models.Deposit, 0, len(all))
	for _, d := range all {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListTrades returns closed trades newest first.
func (s *CacheStateStore) ListTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	all, err := pkgcache.ScanTyped[models.ClosedTrade](ctx, s.c, "trade:*")
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	out := make([]models.ClosedTrade, 0, len(all))
	for _, t := range all {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.After(out[j].ClosedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- watchlist, settings, cooldowns, counters ---

func (s *CacheStateStore) Watchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	all, err := pkgcache.ScanTyped[models.WatchlistEntry](ctx, s.c, "watchlist:*")
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	out := make([]models.WatchlistEntry, 0, len(all))
	for _, e := range all {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *CacheStateStore) UpsertWatchlist(ctx context.Context, entries ...models.WatchlistEntry) error {
	values := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		if e.Ticker == "" {
			continue
		}
		values["watchlist:"+e.Ticker] = e
	}
	if len(values) == 0 {
		return nil
	}
	return s.c.MSet(ctx, values, 0)
}

func (s *CacheStateStore) RemoveWatchlist(ctx context.Context, tickers ...string) error {
	if len(tickers) == 0 {
		return nil
	}
	keys := make([]string, len(tickers))
	for i, t := range tickers {
		keys[i] = "watchlist:" + t
	}
	return s.c.Delete(ctx, keys...)
}

// Settings returns the stored settings, or the defaults when none are saved.
func (s *CacheStateStore) Settings(ctx context.Context) (models.Settings, error) {
	var st models.Settings
	if err := s.get(ctx, "settings", &st); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.DefaultSettings(), nil
		}
		return models.Settings{}, err
	}
	return st, nil
}

func (s *CacheStateStore) SaveSettings(ctx context.Context, st models.Settings) error {
	return s.c.Set(ctx, "settings", st, 0)
}

func (s *CacheStateStore) Cooldowns(ctx context.Context) (models.Cooldowns, error) {
	all, err := pkgcache.ScanTyped[time.Time](ctx, s.c, "cooldown:*")
	if err != nil {
		return nil, fmt.Errorf("cooldowns: %w", err)
	}
	out := make(models.Cooldowns, len(all))
	for k, until := range all {
		out[strings.TrimPrefix(k, "cooldown:")] = until
	}
	return out, nil
}

func (s *CacheStateStore) SetCooldown(ctx context.Context, ticker string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return s.c.Delete(ctx, "cooldown:"+ticker)
	}
	return s.c.Set(ctx, "cooldown:"+ticker, until, ttl)
}

func (s *CacheStateStore) IncrCounter(ctx context.Context, day, name string) (int64, error) {
	key := "counter:" + day + ":" + name
	n, err := s.c.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if _, err := s.c.Expire(ctx, key, counterRetention); err != nil {
			s.l.Warn("counter expiry not set", applogger.String("key", key), applogger.Error(err))
		}
	}
	return n, nil
}

func (s *CacheStateStore) Counters(ctx context.Context, day string) (map[string]int64, error) {
	prefix := "counter:" + day + ":"
	all, err := pkgcache.ScanTyped[int64](ctx, s.c, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("counters: %w", err)
	}
	out := make(map[string]int64, len(all))
	for k, v := range all {
		out[strings.TrimPrefix(k, prefix)] = v
	}
	return out, nil
}

func (s *CacheStateStore) MarkOnce(ctx context.Context, day, name string) (bool, error) {
	key := "once:" + day + ":" + name
	first, err := s.c.TryLock(ctx, key, counterRetention)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return first, nil
}

// --- news ---

func newsKey(ticker, headline string) string {
	return "news:" + ticker + ":" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(headline)).String()
}

// SaveNews stores a headline once per ticker. Seeing it again refreshes the
// sentiment but keeps the first CreatedAt.
func (s *CacheStateStore) SaveNews(ctx context.Context, n models.NewsRecord) error {
	if n.Ticker == "" || n.Headline == "" {
		return errors.New("save news: missing ticker or headline")
	}
	key := newsKey(n.Ticker, n.Headline)
	var prev models.NewsRecord
	switch err := s.get(ctx, key, &prev); {
	case err == nil:
		n.CreatedAt = prev.CreatedAt
	case !errors.Is(err, models.ErrNotFound):
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.c.Set(ctx, key, n, newsRetention); err != nil {
		return fmt.Errorf("save news: %w", err)
	}
	return nil
}

// ListNews returns stored headlines newest first, for one ticker or all
// when ticker is empty.
func (s *CacheStateStore) ListNews(ctx context.Context, ticker string, limit int) ([]models.NewsRecord, error) {
	pattern := "news:*"
	if ticker != "" {
		pattern = "news:" + ticker + ":*"
	}
	all, err := pkgcache.ScanTyped[models.NewsRecord](ctx, s.c, pattern)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	out := make([]models.NewsRecord, 0, len(all))
	for _, n := range all {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Headline < out[j].Headline
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Lock takes a best-effort distributed lock. ErrBusy means another holder.
func (s *CacheStateStore) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := "lock:" + name
	ok, err := s.c.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return nil, models.ErrBusy
	}
	return func() {
		if err := s.c.Unlock(context.Background(), key); err != nil {
			s.l.Warn("unlock failed", applogger.String("lock", name), applogger.Error(err))
		}
	}, nil
}

var _ domrepo.StateStore = (*CacheStateStore)(nil)
