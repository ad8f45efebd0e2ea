package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"Aktiemotor/internal/service/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Evolution aktie - Google Nyheter</title>
<item><title>Evolution rapporterar rekordvinst - Dagens Industri</title><link>https://example.com/1</link><pubDate>Tue, 23 Jan 2024 07:30:00 GMT</pubDate></item>
<item><title>Analytiker höjer riktkurs</title><link>https://example.com/2</link><pubDate>Mon, 22 Jan 2024 10:00:00 GMT</pubDate></item>
<item><title>Tredje nyheten - Placera</title><link>https://example.com/3</link></item>
</channel></rss>`

func TestHeadlinesParsesFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Evolution aktie", r.URL.Query().Get("q"))
		assert.Equal(t, "SE:sv", r.URL.Query().Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedFixture))
	}))
	defer ts.Close()

	g := NewGoogleNews(upstream.New("news", upstream.WithRetry(1, 0)), ts.URL, nil)
	items, err := g.Headlines(context.Background(), "Evolution", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Evolution rapporterar rekordvinst", items[0].Title)
	assert.Equal(t, "Dagens Industri", items[0].Source)
	assert.Equal(t, 23, items[0].Published.Day())
	assert.Equal(t, "Analytiker höjer riktkurs", items[1].Title)
	assert.Equal(t, "Google News", items[1].Source)
}

func TestHeadlinesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	g := NewGoogleNews(upstream.New("news", upstream.WithRetry(1, 0)), ts.URL, nil)
	_, err := g.Headlines(context.Background(), "X", 5)
	require.Error(t, err)
}
