package models

import "time"

// StrategyConfig holds per-ticker risk parameters.
type StrategyConfig struct {
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" default:"0.05" validate:"gt=0,lt=1"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct" default:"0.10" validate:"gt=0,lt=5"`
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier" default:"1.3" validate:"gt=0,lte=10"`
}

// DefaultStrategyConfig returns the fallback parameters.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{StopLossPct: 0.05, TakeProfitPct: 0.10, ATRMultiplier: 1.3}
}

const (
	StrategyTrendFollowing = "trend_following"
	StrategyMeanReversion  = "mean_reversion"
)

// WatchlistEntry is a ticker the engine evaluates every cycle.
type WatchlistEntry struct {
	Ticker   string         `yaml:"ticker" json:"ticker" validate:"required"`
	Company  string         `yaml:"company" json:"company"`
	Strategy string         `yaml:"strategy" json:"strategy" default:"trend_following" validate:"oneof=trend_following mean_reversion"`
	Config   StrategyConfig `yaml:"config" json:"config"`
	Source   string         `yaml:"-" json:"source"`
	Score    int            `yaml:"-" json:"score,omitempty"`
	AddedAt  time.Time      `yaml:"-" json:"added_at"`
}

// Name returns the company name used for news queries.
func (w WatchlistEntry) Name() string {
	if w.Company != "" {
		return w.Company
	}
	return w.Ticker
}
