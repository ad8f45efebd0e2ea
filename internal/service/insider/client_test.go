package insider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/service/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsiderTradesDecodesRegister(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Evolution AB", r.URL.Query().Get("issuerName"))
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("fromTransactionDate"))
		_, _ = w.Write([]byte(`[
		  {"person":"Anna A","position":"VD","typeOfTransaction":"Förvärv","volume":1000,"price":"1 050,50","transactionDate":"2024-02-10"},
		  {"person":"Bo B","position":"Styrelseledamot","typeOfTransaction":"Avyttring","volume":"200","price":990,"transactionDate":"2024-02-12T00:00:00"}
		]`))
	}))
	defer ts.Close()

	c := NewClient(upstream.New("fi", upstream.WithRetry(1, 0)), ts.URL, nil)
	trades, err := c.InsiderTrades(context.Background(), "Evolution AB", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "Anna A", trades[0].Person)
	assert.Equal(t, "Förvärv", trades[0].Action)
	assert.InDelta(t, 1050.5, trades[0].Price, 1e-9)
	assert.Equal(t, 2024, trades[0].Date.Year())
	assert.Equal(t, 200.0, trades[1].Volume)
}

func TestInsiderTradesNonSuccessIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := NewClient(upstream.New("fi", upstream.WithRetry(1, 0)), ts.URL, nil)
	trades, err := c.InsiderTrades(context.Background(), "X", time.Now())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSignificantBuy(t *testing.T) {
	trades := []models.InsiderTrade{
		{Person: "small", Action: "Köp", Volume: 100, Price: 100},
		{Person: "seller", Action: "Avyttring", Volume: 10000, Price: 100},
		{Person: "big", Action: "Buy (acquisition)", Volume: 5000, Price: 120},
		{Person: "mid", Action: "FÖRVÄRV", Volume: 5000, Price: 100},
	}
	got := SignificantBuy(trades, 500000)
	require.NotNil(t, got)
	assert.Equal(t, "big", got.Person)

	assert.Nil(t, SignificantBuy(trades[:2], 500000))
	assert.True(t, IsBuy("Köp"))
	assert.False(t, IsBuy("Avyttring"))
}
