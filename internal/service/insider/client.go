package insider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/service/upstream"
	xhttp "Aktiemotor/pkg/http"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"
)

// buyKeywords mark acquisitions in the register's free-text transaction type.
var buyKeywords = []string{"köp", "buy", "förvärv", "acquisition"}

// Client reads Finansinspektionen's insider transaction register.
type Client struct {
	base    *upstream.Base
	baseURL string
	log     *logger.Logger
}

func NewClient(base *upstream.Base, baseURL string, l *logger.Logger) *Client {
	if l == nil {
		l = logger.Nop()
	}
	return &Client{base: base, baseURL: baseURL, log: l.With("insider")}
}

type row struct {
	Person            string     `json:"person"`
	Position          string     `json:"position"`
	TypeOfTransaction string     `json:"typeOfTransaction"`
	Volume            flexNumber `json:"volume"`
	Price             flexNumber `json:"price"`
	TransactionDate   string     `json:"transactionDate"`
}

// flexNumber accepts both JSON numbers and Swedish-formatted strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = flexNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, _ := util.ParseNumber(s)
	*n = flexNumber(v)
	return nil
}

// InsiderTrades lists reported transactions for company since the given day.
// A register that answers with a non-2xx status yields an empty list.
func (c *Client) InsiderTrades(ctx context.Context, company string, since time.Time) ([]models.InsiderTrade, error) {
	var rows []row
	q := url.Values{
		"issuerName":          {company},
		"fromTransactionDate": {since.Format("2006-01-02")},
	}
	if err := c.base.GetJSON(ctx, c.baseURL, q, &rows); err != nil {
		if xhttp.StatusCode(err) != 0 {
			c.log.Warn("insider register unavailable", logger.String("company", company), logger.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("insider trades %s: %w", company, err)
	}

	out := make([]models.InsiderTrade, 0, len(rows))
	for _, r := range rows {
		t := models.InsiderTrade{
			Person:   r.Person,
			Position: r.Position,
			Action:   r.TypeOfTransaction,
			Volume:   float64(r.Volume),
			Price:    float64(r.Price),
		}
		if d, ok := util.ParseTime(r.TransactionDate); ok {
			t.Date = d
		}
		out = append(out, t)
	}
	return out, nil
}

// IsBuy reports whether the transaction type describes an acquisition.
func IsBuy(action string) bool {
	a := strings.ToLower(action)
	for _, k := range buyKeywords {
		if strings.Contains(a, k) {
			return true
		}
	}
	return false
}

// SignificantBuy returns the largest acquisition at or above minNotional, or nil.
func SignificantBuy(trades []models.InsiderTrade, minNotional float64) *models.InsiderTrade {
	var best *models.InsiderTrade
	for i := range trades {
		t := &trades[i]
		if !IsBuy(t.Action) || t.Notional() < minNotional {
			continue
		}
		if best == nil || t.Notional() > best.Notional() {
			best = t
		}
	}
	return best
}
