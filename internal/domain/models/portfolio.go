package models

import "time"

type Deposit struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PortfolioSummary is the ledger view of cash, holdings and results.
type PortfolioSummary struct {
	Deposited     float64          `json:"deposited"`
	RealizedPnL   float64          `json:"realized_pnl"`
	Invested      float64          `json:"invested"`
	MarketValue   float64          `json:"market_value"`
	UnrealizedPnL float64          `json:"unrealized_pnl"`
	Cash          float64          `json:"cash"`
	TotalValue    float64          `json:"total_value"`
	TotalPct      float64          `json:"total_pct"`
	Positions     []PositionValue  `json:"positions"`
	Counters      map[string]int64 `json:"counters,omitempty"`
}

// PositionValue is an open position marked to the latest price.
type PositionValue struct {
	Position
	LastPrice     float64 `json:"last_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPct        float64 `json:"pnl_pct"`
}

// SizeQuote is the allocation the engine would make for a given confidence.
type SizeQuote struct {
	Confidence int     `json:"confidence"`
	SlotCap    float64 `json:"slot_cap"`
	Value      float64 `json:"value"`
	Quantity   int     `json:"quantity,omitempty"`
	Equity     float64 `json:"equity"`
}

// ThresholdQuote shows the effective thresholds for a regime and turnover.
type ThresholdQuote struct {
	Regime   MarketRegime `json:"regime"`
	Turnover float64      `json:"turnover"`
	Illiquid bool         `json:"illiquid"`
	Buy      int          `json:"buy"`
	Sell     int          `json:"sell"`
}

// DailyBriefing is the content of the morning and evening pushes.
type DailyBriefing struct {
	TotalValue    float64  `json:"total_value"`
	TotalPct      float64  `json:"total_pct"`
	OpenPositions int      `json:"open_positions"`
	ReportsToday  []string `json:"reports_today"`
	Paused        []string `json:"paused"`
	Signals       int64    `json:"signals"`
	Trades        int64    `json:"trades"`
}
