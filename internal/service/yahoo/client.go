package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/cache"
	"Aktiemotor/internal/service/upstream"
	pkgcache "Aktiemotor/pkg/cache"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"
)

const stockholmSuffix = ".ST"

// BrowserUserAgent is sent on every call; the endpoints reject default Go agents.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Config struct {
	BaseURL     string
	QuoteTTL    time.Duration
	EarningsTTL time.Duration
}

// Client reads Yahoo Finance's chart and quoteSummary endpoints. It serves
// daily history, the live quote and the next earnings date.
type Client struct {
	base  *upstream.Base
	cfg   Config
	cache cache.BytesCache
	log   *logger.Logger
	now   func() time.Time
}

func NewClient(base *upstream.Base, cfg Config, c cache.BytesCache, l *logger.Logger) *Client {
	if l == nil {
		l = logger.Nop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{base: base, cfg: cfg, cache: c, log: l.With("yahoo"), now: time.Now}
}

// Symbol maps an exchange ticker to Yahoo notation.
func Symbol(ticker string) string { return util.YahooSymbol(ticker, stockholmSuffix) }

func (c *Client) chart(ctx context.Context, symbol string, q url.Values) (*chartResult, error) {
	var resp chartResponse
	u := c.cfg.BaseURL + "/v8/finance/chart/" + url.PathEscape(Symbol(symbol))
	if err := c.base.GetJSON(ctx, u, q, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, models.ErrNotFound)
	}
	return &resp.Chart.Result[0], nil
}

// DailyBars returns adjusted daily bars, oldest first. Rows with a missing
// price are dropped; a missing volume reads as zero.
func (c *Client) DailyBars(ctx context.Context, symbol string, r repository.Range) ([]models.Bar, error) {
	res, err := c.chart(ctx, symbol, url.Values{
		"range":                {string(r)},
		"interval":             {"1d"},
		"includeAdjustedClose": {"true"},
	})
	if err != nil {
		return nil, err
	}
	bars := barsFromChart(res)
	c.log.Debug("history fetched", logger.String("symbol", symbol), logger.Int("bars", len(bars)))
	return bars, nil
}

func barsFromChart(res *chartResult) []models.Bar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}
	at := func(s []*float64, i int) (float64, bool) {
		if i >= len(s) || s[i] == nil {
			return 0, false
		}
		return *s[i], true
	}

	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, ok1 := at(q.Open, i)
		h, ok2 := at(q.High, i)
		l, ok3 := at(q.Low, i)
		cl, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 || cl <= 0 {
			continue
		}
		factor := 1.0
		if a, ok := at(adj, i); ok && a > 0 {
			factor = a / cl
		}
		v, _ := at(q.Volume, i)
		day := time.Unix(ts, 0).UTC()
		bars = append(bars, models.Bar{
			Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:   o * factor,
			High:   h * factor,
			Low:    l * factor,
			Close:  cl * factor,
			Volume: v,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

// LastPrice returns the regular-market price from the chart meta.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	key := pkgcache.Key("quote", Symbol(symbol))
	if p, ok := cache.GetJSON[float64](ctx, c.cache, key); ok {
		return p, nil
	}
	res, err := c.chart(ctx, symbol, url.Values{"range": {"1d"}, "interval": {"1d"}})
	if err != nil {
		return 0, err
	}
	p := res.Meta.RegularMarketPrice
	if p <= 0 {
		return 0, fmt.Errorf("quote %s: no price", symbol)
	}
	_ = cache.SetJSON(ctx, c.cache, key, p, c.cfg.QuoteTTL)
	return p, nil
}

// NextEarnings returns the first report date that is not in the past, or nil.
func (c *Client) NextEarnings(ctx context.Context, symbol string) (*time.Time, error) {
	key := pkgcache.Key("earnings", Symbol(symbol))
	if e, ok := cache.GetJSON[earningsEntry](ctx, c.cache, key); ok {
		return unixPtr(e.At), nil
	}

	var resp summaryResponse
	u := c.cfg.BaseURL + "/v11/finance/quoteSummary/" + url.PathEscape(Symbol(symbol))
	if err := c.base.GetJSON(ctx, u, url.Values{"modules": {"calendarEvents"}}, &resp); err != nil {
		return nil, fmt.Errorf("earnings %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("earnings %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}

	var entry earningsEntry
	if len(resp.QuoteSummary.Result) > 0 {
		now := c.now().Unix()
		for _, d := range resp.QuoteSummary.Result[0].CalendarEvents.Earnings.EarningsDate {
			if d.Raw >= now && (entry.At == nil || d.Raw < *entry.At) {
				raw := d.Raw
				entry.At = &raw
			}
		}
	}
	_ = cache.SetJSON(ctx, c.cache, key, entry, c.cfg.EarningsTTL)
	return unixPtr(entry.At), nil
}

func unixPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
