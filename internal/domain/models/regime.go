package models

// MarketRegime is the trend state of the benchmark index for one cycle.
type MarketRegime string

const (
	RegimeBull      MarketRegime = "BULL"
	RegimeBullEarly MarketRegime = "BULL_EARLY"
	RegimeNeutral   MarketRegime = "NEUTRAL"
	RegimeBear      MarketRegime = "BEAR"
)

// ParseRegime maps a label to a regime, defaulting to NEUTRAL.
func ParseRegime(s string) MarketRegime {
	switch MarketRegime(s) {
	case RegimeBull, RegimeBullEarly, RegimeBear:
		return MarketRegime(s)
	default:
		return RegimeNeutral
	}
}

// RegimeState is the classified regime together with the index values it was derived from.
type RegimeState struct {
	Regime     MarketRegime `json:"regime"`
	IndexPrice float64      `json:"index_price"`
	MA50       *float64     `json:"ma50,omitempty"`
	MA200      *float64     `json:"ma200,omitempty"`
}
