package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	applogger "Aktiemotor/pkg/logger"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

var fluxSafeTicker = regexp.MustCompile(`^[A-Za-z0-9 ^._-]{1,20}$`)

// InfluxHistory reads daily bars written by an external collector into the
// stock_prices measurement (fields open, high, low, close, adj_close, volume;
// tag ticker).
type InfluxHistory struct {
	client      influxdb2.Client
	query       api.QueryAPI
	bucket      string
	measurement string
	l           *applogger.Logger
	now         func() time.Time
}

func NewInfluxHistory(url, token, org, bucket, measurement string) *InfluxHistory {
	client := influxdb2.NewClient(url, token)
	return &InfluxHistory{
		client:      client,
		query:       client.QueryAPI(org),
		bucket:      bucket,
		measurement: measurement,
		l:           applogger.Nop(),
		now:         time.Now,
	}
}

// SetLogger injects a structured logger.
func (h *InfluxHistory) SetLogger(l *applogger.Logger) {
	if l != nil {
		h.l = l.With("influx_history")
	}
}

func (h *InfluxHistory) fluxQuery(ticker string, from, to time.Time) string {
	return fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: %s, stop: %s)
		  |> filter(fn: (r) => r._measurement == "%s")
		  |> filter(fn: (r) => r.ticker == "%s")
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"], desc: false)
	`, h.bucket, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), h.measurement, ticker)
}

func (h *InfluxHistory) DailyBars(ctx context.Context, symbol string, r domrepo.Range) ([]models.Bar, error) {
	if !fluxSafeTicker.MatchString(symbol) {
		return nil, fmt.Errorf("invalid ticker %q", symbol)
	}
	to := h.now()
	from := to.Add(-domrepo.NormalizeRange(string(r)).Duration())

	result, err := h.query.Query(ctx, h.fluxQuery(symbol, from, to))
	if err != nil {
		return nil, fmt.Errorf("influx query %s: %w", symbol, err)
	}
	defer result.Close()

	bars := make([]models.Bar, 0, 256)
	for result.Next() {
		rec := result.Record()
		b := models.Bar{Date: rec.Time().UTC()}
		b.Open, _ = rec.ValueByKey("open").(float64)
		b.High, _ = rec.ValueByKey("high").(float64)
		b.Low, _ = rec.ValueByKey("low").(float64)
		b.Close, _ = rec.ValueByKey("close").(float64)
		b.Volume, _ = rec.ValueByKey("volume").(float64)
		if adj, ok := rec.ValueByKey("adj_close").(float64); ok && adj > 0 && b.Close > 0 {
			f := adj / b.Close
			b.Open, b.High, b.Low, b.Close = b.Open*f, b.High*f, b.Low*f, adj
		}
		if b.Close <= 0 {
			continue
		}
		bars = append(bars, b)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("influx read %s: %w", symbol, result.Err())
	}
	h.l.Debug("influx daily_bars ok", applogger.String("ticker", symbol), applogger.Int("rows", len(bars)))
	return bars, nil
}

func (h *InfluxHistory) Close() error {
	h.client.Close()
	return nil
}
