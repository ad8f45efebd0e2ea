package models

import "time"

// Cooldowns maps ticker to the time until which new signals are suppressed.
type Cooldowns map[string]time.Time

// Active reports whether ticker is still cooling down at now.
func (c Cooldowns) Active(ticker string, now time.Time) bool {
	until, ok := c[ticker]
	return ok && now.Before(until)
}

// EvaluationContext is the state shared by all ticker evaluations of one
// cycle. Regime is fixed for the cycle; positions change only on confirmation.
type EvaluationContext struct {
	Regime        MarketRegime
	IndexBars     []Bar
	Cooldowns     Cooldowns
	OpenPositions map[string]Position
	// PendingBuys holds tickers given a BUY earlier in this cycle. Each takes
	// a slot for the rest of the cycle.
	PendingBuys map[string]bool
	// RotatedOut holds holdings already proposed for rotation this cycle.
	RotatedOut map[string]bool
	Settings   Settings
	Equity     float64
	Now        time.Time
}

// SlotsUsed counts open positions plus BUYs emitted this cycle.
func (c *EvaluationContext) SlotsUsed() int {
	return len(c.OpenPositions) + len(c.PendingBuys)
}

// SlotsFull reports whether no new position can be proposed outright.
func (c *EvaluationContext) SlotsFull() bool {
	return c.SlotsUsed() >= c.Settings.MaxPositions
}

// SlotsFullFor is SlotsFull ignoring ticker's own pending BUY, which a new
// BUY for the same ticker would replace.
func (c *EvaluationContext) SlotsFullFor(ticker string) bool {
	used := c.SlotsUsed()
	if c.PendingBuys[ticker] {
		used--
	}
	return used >= c.Settings.MaxPositions
}

// Position returns the open position in ticker, if any.
func (c *EvaluationContext) Position(ticker string) (Position, bool) {
	p, ok := c.OpenPositions[ticker]
	return p, ok
}

// EvaluationResult summarises a single ticker pass.
type EvaluationResult struct {
	Ticker    string             `json:"ticker"`
	Skipped   string             `json:"skipped,omitempty"`
	BuyScore  *int               `json:"buy_score,omitempty"`
	SellScore *int               `json:"sell_score,omitempty"`
	Threshold int                `json:"threshold,omitempty"`
	Reasons   []string           `json:"reasons,omitempty"`
	Signals   []*Recommendation  `json:"signals,omitempty"`
	Snapshot  *IndicatorSnapshot `json:"snapshot,omitempty"`
	RS        *float64           `json:"relative_strength,omitempty"`
}

// CycleReport summarises one evaluation cycle.
type CycleReport struct {
	Regime    MarketRegime        `json:"regime"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Results   []*EvaluationResult `json:"results"`
	Emitted   int                 `json:"emitted"`
}
