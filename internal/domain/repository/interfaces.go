package repository

import (
	"context"
	"time"

	"Aktiemotor/internal/domain/models"
)

// BarSource returns daily bars for a ticker or index symbol, ascending by date.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, r Range) ([]models.Bar, error)
}

// QuoteSource returns the latest traded price.
type QuoteSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// EarningsCalendar returns the next report date, or nil when none is known.
type EarningsCalendar interface {
	NextEarnings(ctx context.Context, symbol string) (*time.Time, error)
}

// InsiderRegister lists insider transactions reported since a date.
type InsiderRegister interface {
	InsiderTrades(ctx context.Context, company string, since time.Time) ([]models.InsiderTrade, error)
}

// NewsSource returns recent headlines, newest first.
type NewsSource interface {
	Headlines(ctx context.Context, company string, limit int) ([]models.NewsItem, error)
}

// Notification is a push message for the operator's phone.
type Notification struct {
	Title    string
	Message  string
	Priority int
	Tags     []string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RecommendationPublisher streams recommendations to downstream consumers.
type RecommendationPublisher interface {
	PublishRecommendation(ctx context.Context, rec *models.Recommendation) error
	Close() error
}

// Archive is the append-only analytical store: daily bars, per-cycle
// indicator snapshots and every recommendation emitted.
type Archive interface {
	Init(ctx context.Context) error
	StoreBars(ctx context.Context, ticker string, bars []models.Bar) error
	StoreSnapshot(ctx context.Context, snap *models.IndicatorSnapshot, regime models.MarketRegime, at time.Time) error
	StoreRecommendations(ctx context.Context, recs []*models.Recommendation) error
	Health(ctx context.Context) error
	Close() error
}

type SignalStore interface {
	SaveSignal(ctx context.Context, rec *models.Recommendation) error
	GetSignal(ctx context.Context, id string) (*models.Recommendation, error)
	ListSignals(ctx context.Context, status models.SignalStatus, limit int) ([]*models.Recommendation, error)
	// PendingSignal returns the pending recommendation for ticker and side, or ErrNotFound.
	PendingSignal(ctx context.Context, ticker string, side models.Side) (*models.Recommendation, error)
}

type PositionStore interface {
	OpenPosition(ctx context.Context, p models.Position) error
	GetPosition(ctx context.Context, ticker string) (*models.Position, error)
	ListPositions(ctx context.Context) ([]models.Position, error)
	// ClosePosition removes the open position and records the closed trade.
	ClosePosition(ctx context.Context, trade models.ClosedTrade) error
}

type LedgerStore interface {
	AddDeposit(ctx context.Context, d models.Deposit) error
	ListDeposits(ctx context.Context) ([]models.Deposit, error)
	ListTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error)
}

type WatchlistStore interface {
	Watchlist(ctx context.Context) ([]models.WatchlistEntry, error)
	UpsertWatchlist(ctx context.Context, entries ...models.WatchlistEntry) error
	RemoveWatchlist(ctx context.Context, tickers ...string) error
}

type SettingsStore interface {
	Settings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

type CooldownStore interface {
	Cooldowns(ctx context.Context) (models.Cooldowns, error)
	SetCooldown(ctx context.Context, ticker string, until time.Time) error
}

// CounterStore keeps per-day activity counters.
type CounterStore interface {
	IncrCounter(ctx context.Context, day, name string) (int64, error)
	Counters(ctx context.Context, day string) (map[string]int64, error)
	// MarkOnce reports true only for the first mark of name on day.
	MarkOnce(ctx context.Context, day, name string) (bool, error)
}

// NewsStore keeps analysed headlines, newest first on read.
type NewsStore interface {
	SaveNews(ctx context.Context, n models.NewsRecord) error
	ListNews(ctx context.Context, ticker string, limit int) ([]models.NewsRecord, error)
}

// StateStore is the engine's mutable state.
type StateStore interface {
	SignalStore
	PositionStore
	LedgerStore
	WatchlistStore
	SettingsStore
	CooldownStore
	CounterStore
	NewsStore
	// Lock serialises position-changing operations across processes.
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}

// Metrics is the recorder surface used outside pkg/metrics.
type Metrics interface {
	RecordMessageSent(sink string)
	RecordError(kind string)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, d time.Duration)
	RecordCycle(d time.Duration)
	RecordEvaluation(outcome string)
	RecordSignal(side, kind string)
	RecordScore(ticker, side string, score int)
	RecordRegime(current string)
}
