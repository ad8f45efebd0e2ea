package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/cache"
	"Aktiemotor/internal/service/upstream"
	xhttp "Aktiemotor/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartFixture = `{"chart":{"result":[{
  "meta":{"symbol":"EVO.ST","currency":"SEK","regularMarketPrice":1012.5},
  "timestamp":[1700038800,1699952400,1700125200],
  "indicators":{
    "quote":[{"open":[100,99,null],"high":[102,101,104],"low":[98,97,100],"close":[101,100,103],"volume":[1000,null,1200]}],
    "adjclose":[{"adjclose":[50.5,50,51.5]}]
  }}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	base := upstream.New("yahoo",
		upstream.WithClient(xhttp.NewClient(xhttp.WithUserAgent(BrowserUserAgent))),
		upstream.WithRetry(1, 0))
	c := NewClient(base, Config{BaseURL: ts.URL + "/", QuoteTTL: time.Minute, EarningsTTL: time.Hour}, cache.NewTTLCache(), nil)
	return c, ts
}

func TestDailyBarsAdjustsAndSorts(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/EVO.ST", r.URL.Path)
		assert.Equal(t, "1y", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte(chartFixture))
	})

	bars, err := c.DailyBars(context.Background(), "EVO", repository.Range("1y"))
	require.NoError(t, err)
	require.Len(t, bars, 2, "row with a missing open is dropped")

	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.InDelta(t, 50.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 49.5, bars[0].Open, 1e-9)
	assert.Zero(t, bars[0].Volume)
	assert.InDelta(t, 50.5, bars[1].Close, 1e-9)
	assert.Equal(t, 1000.0, bars[1].Volume)
}

func TestSymbolMapping(t *testing.T) {
	assert.Equal(t, "EMBRAC-B.ST", Symbol("EMBRAC B"))
	assert.Equal(t, "^OMX", Symbol("^OMX"))
	assert.Equal(t, "EVO.ST", Symbol("EVO.ST"))
}

func TestLastPriceIsCached(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(chartFixture))
	})

	for i := 0; i < 3; i++ {
		p, err := c.LastPrice(context.Background(), "EVO")
		require.NoError(t, err)
		assert.Equal(t, 1012.5, p)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNextEarningsPicksFirstFutureDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour).Unix()
	soon := now.Add(72 * time.Hour).Unix()
	later := now.Add(30 * 24 * time.Hour).Unix()

	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v11/finance/quoteSummary/SINCH.ST", r.URL.Path)
		assert.Equal(t, "calendarEvents", r.URL.Query().Get("modules"))
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"calendarEvents":{"earnings":{"earningsDate":[` +
			`{"raw":` + itoa(past) + `},{"raw":` + itoa(later) + `},{"raw":` + itoa(soon) + `}]}}}],"error":null}}`))
	})
	c.now = func() time.Time { return now }

	got, err := c.NextEarnings(context.Background(), "SINCH")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, soon, got.Unix())

	_, err = c.NextEarnings(context.Background(), "SINCH")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNextEarningsNoneIsCachedToo(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"calendarEvents":{"earnings":{"earningsDate":[]}}}],"error":null}}`))
	})

	for i := 0; i < 2; i++ {
		got, err := c.NextEarnings(context.Background(), "HTRO")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestChartErrorIsReturned(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})
	_, err := c.DailyBars(context.Background(), "NOPE", repository.Range("1y"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
