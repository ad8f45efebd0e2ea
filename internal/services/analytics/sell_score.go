package analytics

import (
    "fmt"

    "Aktiemotor/internal/domain/models"
)

const (
    overboughtRSI = 70.0

    lossATRMultiple    = 1.5
    severeATRMultiple  = 2.5
    realizeATRMultiple = 3.0
)

// ScoreSell scores a SELL recommendation for an open position. Loss and gain
// thresholds are multiples of the stock's ATR as a fraction of the entry
// price; without ATR the strategy's fixed percentages are used instead.
func ScoreSell(s *models.IndicatorSnapshot, pos models.Position, c SignalContext, strategy models.StrategyConfig) (int, []string) {
    if s == nil {
        return 0, nil
    }
    score := 0
    reasons := make([]string, 0, 6)
    add := func(points int, format string, args ...interface{}) {
        score += points
        reasons = append(reasons, fmt.Sprintf(format, args...)+fmt.Sprintf(" (%+dp)", points))
    }
    price := s.CurrentPrice

    if s.RSI != nil && *s.RSI > overboughtRSI {
        add(25, "RSI %.1f overbought", *s.RSI)
    }

    if s.HasMACDPair() && *s.MACDPrev > *s.MACDSignalPrev && *s.MACD < *s.MACDSignal {
        add(20, "MACD bearish crossover")
    }

    loss, severe, realize := pnlThresholds(s.ATR, pos.EntryPrice, strategy)
    pnl := pos.PnLPct(price)
    switch {
    case pnl <= severe:
        add(40, "Loss %.1f%% beyond %.1f%% volatility stop", pnl*100, severe*100)
    case pnl <= loss:
        add(20, "Loss %.1f%% beyond %.1f%% volatility band", pnl*100, loss*100)
    case pnl >= realize:
        add(20, "Gain %.1f%% above %.1f%%, consider realizing", pnl*100, realize*100)
    }

    if c.Sentiment != nil && c.Sentiment.Sentiment == models.SentimentNegative {
        add(15, "Negative news sentiment: %s", c.Sentiment.Reason)
    }

    if s.MA50 != nil && price < *s.MA50 {
        add(20, "Price below MA50 %.2f", *s.MA50)
    }

    if rs := c.RelativeStrength; rs != nil && *rs < 0.90 {
        add(15, "Persistent underperformance vs index, RS %.2f", *rs)
    }

    return score, reasons
}

// pnlThresholds returns the moderate loss, severe loss and realize-gain
// levels as signed fractions of entry.
func pnlThresholds(atr *float64, entry float64, strategy models.StrategyConfig) (loss, severe, realize float64) {
    if atr != nil && *atr > 0 && entry > 0 {
        atrPct := *atr / entry
        return -lossATRMultiple * atrPct, -severeATRMultiple * atrPct, realizeATRMultiple * atrPct
    }
    sl := strategy.StopLossPct
    if sl <= 0 {
        sl = models.DefaultStrategyConfig().StopLossPct
    }
    tp := strategy.TakeProfitPct
    if tp <= 0 {
        tp = models.DefaultStrategyConfig().TakeProfitPct
    }
    return -sl, -sl * severeATRMultiple / lossATRMultiple, tp
}
