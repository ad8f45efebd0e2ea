package models

// IndicatorSnapshot is the flat set of technical values for one ticker in one
// evaluation cycle. A nil pointer means the indicator could not be computed
// from the available history and must not be read as zero.
type IndicatorSnapshot struct {
	Ticker       string  `json:"ticker"`
	CurrentPrice float64 `json:"current_price"`

	RSI *float64 `json:"rsi,omitempty"`

	MACD              *float64 `json:"macd,omitempty"`
	MACDSignal        *float64 `json:"macd_signal,omitempty"`
	MACDHistogram     *float64 `json:"macd_histogram,omitempty"`
	MACDPrev          *float64 `json:"macd_prev,omitempty"`
	MACDSignalPrev    *float64 `json:"macd_signal_prev,omitempty"`
	MACDHistogramPrev *float64 `json:"macd_histogram_prev,omitempty"`

	MA20  *float64 `json:"ma20,omitempty"`
	MA50  *float64 `json:"ma50,omitempty"`
	MA200 *float64 `json:"ma200,omitempty"`
	EMA20 *float64 `json:"ema20,omitempty"`

	BollingerUpper *float64 `json:"bollinger_upper,omitempty"`
	BollingerMid   *float64 `json:"bollinger_mid,omitempty"`
	BollingerLower *float64 `json:"bollinger_lower,omitempty"`

	ATR         *float64 `json:"atr,omitempty"`
	VolumeRatio float64  `json:"volume_ratio"`
	DailyReturn *float64 `json:"daily_return,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// HasMACDPair reports whether all four values needed for crossover
// detection are present.
func (s *IndicatorSnapshot) HasMACDPair() bool {
	return s.MACD != nil && s.MACDSignal != nil && s.MACDPrev != nil && s.MACDSignalPrev != nil
}

// ATRPct returns ATR as a fraction of the current price.
func (s *IndicatorSnapshot) ATRPct() *float64 {
	if s == nil || s.ATR == nil || s.CurrentPrice <= 0 {
		return nil
	}
	return Float(*s.ATR / s.CurrentPrice)
}
