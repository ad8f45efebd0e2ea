package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	pkgch "Aktiemotor/pkg/clickhouse"
	applogger "Aktiemotor/pkg/logger"
)

// CHArchive implements Archive backed by ClickHouse. It also serves the
// archived bars back as a BarSource of last resort.
type CHArchive struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHArchive(ch *pkgch.Client) *CHArchive {
	return &CHArchive{ch: ch, db: ch.DB(), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHArchive) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l.With("clickhouse_archive")
	}
}

func (s *CHArchive) table(name string) string {
	if db := s.ch.Database(); db != "" {
		return db + "." + name
	}
	return name
}

func (s *CHArchive) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            ticker      LowCardinality(String),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (ticker, date)`, s.table("bars_daily")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            ts             DateTime64(3),
            ticker         LowCardinality(String),
            regime         LowCardinality(String),
            price          Float64,
            rsi            Nullable(Float64),
            macd           Nullable(Float64),
            macd_signal    Nullable(Float64),
            macd_histogram Nullable(Float64),
            ma20           Nullable(Float64),
            ma50           Nullable(Float64),
            ma200          Nullable(Float64),
            bb_lower       Nullable(Float64),
            bb_upper       Nullable(Float64),
            atr            Nullable(Float64),
            volume_ratio   Float64,
            daily_return   Nullable(Float64)
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(ts)
        ORDER BY (ticker, ts)
        TTL toDateTime(ts) + INTERVAL 2 YEAR`, s.table("indicator_snapshots")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id          String,
            created_at  DateTime64(3),
            updated_at  DateTime64(3),
            ticker      LowCardinality(String),
            side        LowCardinality(String),
            kind        LowCardinality(String),
            status      LowCardinality(String),
            score       Int32,
            threshold   Int32,
            confidence  Int32,
            price       Float64,
            quantity    Int32,
            value       Float64,
            stop_loss   Float64,
            take_profit Float64,
            regime      LowCardinality(String),
            rotation_of String,
            reasons     Array(String),
            description String
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (ticker, id)`, s.table("recommendations")),
	}
}

func (s *CHArchive) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, s.schema()); err != nil {
		s.l.Error("clickhouse schema init failed", applogger.Error(err))
		return err
	}
	return nil
}

func (s *CHArchive) StoreBars(ctx context.Context, ticker string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	q := fmt.Sprintf("INSERT INTO %s (ticker, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table("bars_daily"))
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		s.l.Error("clickhouse store_bars error",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("store bars %s: %w", ticker, err)
	}
	s.l.Debug("clickhouse store_bars ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHArchive) StoreSnapshot(ctx context.Context, snap *models.IndicatorSnapshot, regime models.MarketRegime, at time.Time) error {
	if snap == nil {
		return nil
	}
	q := fmt.Sprintf(`INSERT INTO %s (ts, ticker, regime, price, rsi, macd, macd_signal, macd_histogram,
        ma20, ma50, ma200, bb_lower, bb_upper, atr, volume_ratio, daily_return)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table("indicator_snapshots"))
	_, err := s.db.ExecContext(ctx, q,
		at.UTC(), snap.Ticker, string(regime), snap.CurrentPrice,
		snap.RSI, snap.MACD, snap.MACDSignal, snap.MACDHistogram,
		snap.MA20, snap.MA50, snap.MA200, snap.BollingerLower, snap.BollingerUpper,
		snap.ATR, snap.VolumeRatio, snap.DailyReturn,
	)
	if err != nil {
		s.l.Error("clickhouse store_snapshot error", applogger.String("ticker", snap.Ticker), applogger.Error(err))
		return fmt.Errorf("store snapshot %s: %w", snap.Ticker, err)
	}
	return nil
}

// StoreRecommendations appends recommendation versions; the table keeps the
// latest version per id.
func (s *CHArchive) StoreRecommendations(ctx context.Context, recs []*models.Recommendation) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, created_at, updated_at, ticker, side, kind, status, score, threshold,
        confidence, price, quantity, value, stop_loss, take_profit, regime, rotation_of, reasons, description)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table("recommendations"))
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		if r == nil || r.ID == "" {
			continue
		}
		updated := r.CreatedAt
		if r.DecidedAt != nil {
			updated = *r.DecidedAt
		}
		reasons := r.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		rows = append(rows, []any{
			r.ID, r.CreatedAt.UTC(), updated.UTC(), r.Ticker, string(r.Side), string(r.Kind), string(r.Status),
			int32(r.Score), int32(r.Threshold), int32(r.Confidence), r.Price, int32(r.Quantity), r.Value,
			r.StopLoss, r.TakeProfit, string(r.Regime), r.RotationOf, reasons, r.Description,
		})
	}
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		s.l.Error("clickhouse store_recommendations error", applogger.Int("rows", len(rows)), applogger.Error(err))
		return fmt.Errorf("store recommendations: %w", err)
	}
	return nil
}

// DailyBars reads archived bars for the last r, ascending.
func (s *CHArchive) DailyBars(ctx context.Context, symbol string, r domrepo.Range) ([]models.Bar, error) {
	start := time.Now()
	from := start.Add(-domrepo.NormalizeRange(string(r)).Duration())
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE ticker = ? AND date >= ?
        ORDER BY date ASC
    `, s.table("bars_daily"))
	rows, err := s.db.QueryContext(ctx, q, strings.ToUpper(symbol), from)
	if err != nil {
		s.l.Error("clickhouse daily_bars query error", applogger.String("ticker", symbol), applogger.Error(err))
		return nil, fmt.Errorf("archived bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("ticker", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHArchive) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHArchive) Close() error {
	return nil
}

// NoopArchive drops everything. Used when ClickHouse is disabled.
type NoopArchive struct{}

func (NoopArchive) Init(context.Context) error { return nil }

func (NoopArchive) StoreBars(context.Context, string, []models.Bar) error { return nil }

func (NoopArchive) StoreSnapshot(context.Context, *models.IndicatorSnapshot, models.MarketRegime, time.Time) error {
	return nil
}

func (NoopArchive) StoreRecommendations(context.Context, []*models.Recommendation) error { return nil }

func (NoopArchive) Health(context.Context) error { return nil }

func (NoopArchive) Close() error { return nil }
