package models

import "time"

// Position is an open holding. A ticker has at most one.
type Position struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   int       `json:"quantity"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	SignalID   string    `json:"signal_id,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Cost is the capital committed at entry.
func (p Position) Cost() float64 { return p.EntryPrice * float64(p.Quantity) }

// PnLPct is the unrealized return at price as a fraction of entry.
func (p Position) PnLPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice
}

// StopTakeHit reports which protective level price has crossed, if any.
func (p Position) StopTakeHit(price float64) (hit bool, label string) {
	switch {
	case p.StopLoss > 0 && price <= p.StopLoss:
		return true, "stop_loss"
	case p.TakeProfit > 0 && price >= p.TakeProfit:
		return true, "take_profit"
	default:
		return false, ""
	}
}

// ClosedTrade is a position after exit.
type ClosedTrade struct {
	Position
	ExitPrice float64   `json:"exit_price"`
	PnL       float64   `json:"pnl"`
	PnLPct    float64   `json:"pnl_pct"`
	Reason    string    `json:"reason"`
	ClosedAt  time.Time `json:"closed_at"`
}
