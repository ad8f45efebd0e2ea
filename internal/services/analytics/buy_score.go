package analytics

import (
    "fmt"

    "Aktiemotor/internal/domain/models"
)

// SignalContext is the optional, non-technical input to scoring. Zero values
// are neutral: no sentiment, no insider buy, no report due, unknown RS.
type SignalContext struct {
    Regime           models.MarketRegime
    Sentiment        *models.SentimentResult
    InsiderBuy       bool
    EarningsSoon     bool
    RelativeStrength *float64
}

const (
    oversoldRSI       = 35.0
    pullbackRSIHigh   = 55.0
    bollingerRSIMax   = 40.0
    bollingerTouchTol = 1.01
    maBand            = 0.02
    volumeSpike       = 1.5
    volumeUpReturn    = 0.001
)

// ScoreBuy scores a BUY opportunity from the snapshot and context. Every
// point contribution is paired with a reason. It never looks at positions.
func ScoreBuy(s *models.IndicatorSnapshot, c SignalContext) (int, []string) {
    if s == nil {
        return 0, nil
    }
    score := 0
    reasons := make([]string, 0, 8)
    add := func(points int, format string, args ...interface{}) {
        score += points
        reasons = append(reasons, fmt.Sprintf(format, args...)+fmt.Sprintf(" (%+dp)", points))
    }
    price := s.CurrentPrice

    switch c.Regime {
    case models.RegimeBear:
        add(-20, "Market regime BEAR")
    case models.RegimeNeutral:
        add(-10, "Market regime NEUTRAL")
    }

    if s.RSI != nil && *s.RSI < oversoldRSI {
        if s.MA200 != nil && price > *s.MA200 {
            add(25, "RSI %.1f oversold above MA200", *s.RSI)
        } else {
            add(15, "RSI %.1f oversold", *s.RSI)
        }
    }

    crossover := false
    if s.HasMACDPair() && *s.MACDPrev < *s.MACDSignalPrev && *s.MACD > *s.MACDSignal {
        crossover = true
        if histogramRising(s) {
            add(20, "MACD bullish crossover, histogram %.3f", *s.MACDHistogram)
        } else {
            add(12, "MACD bullish crossover, unconfirmed")
        }
    }
    if !crossover && s.MACDHistogram != nil && s.MACDHistogramPrev != nil &&
        *s.MACDHistogram > 0 && *s.MACDHistogram > *s.MACDHistogramPrev {
        add(8, "MACD momentum rising, histogram %.3f > %.3f", *s.MACDHistogram, *s.MACDHistogramPrev)
    }

    maProximity(add, "MA50", price, s.MA50)
    maProximity(add, "MA200", price, s.MA200)

    if s.VolumeRatio >= volumeSpike {
        switch {
        case s.DailyReturn != nil && *s.DailyReturn < 0:
            // heavy volume on a down day is distribution, never a buy reason
        case s.DailyReturn != nil && *s.DailyReturn > volumeUpReturn:
            add(15, "Volume %.1fx average on an up day (%+.1f%%)", s.VolumeRatio, *s.DailyReturn*100)
        default:
            add(5, "Volume %.1fx average, direction flat", s.VolumeRatio)
        }
    }

    if s.RSI != nil && s.MA50 != nil && s.MA200 != nil &&
        *s.RSI >= oversoldRSI && *s.RSI <= pullbackRSIHigh &&
        price > *s.MA50 && *s.MA50 > *s.MA200 {
        add(10, "Pullback in uptrend, RSI %.1f with price > MA50 > MA200", *s.RSI)
    }

    if s.MA50 != nil && s.MA200 != nil && *s.MA50 > *s.MA200 {
        add(10, "Golden cross, MA50 %.2f above MA200 %.2f", *s.MA50, *s.MA200)
    }

    if c.Sentiment != nil && c.Sentiment.Sentiment == models.SentimentPositive {
        add(15, "Positive news sentiment: %s", c.Sentiment.Reason)
    }

    if c.InsiderBuy {
        add(10, "Insider purchase above 500 000 SEK")
    }

    if s.BollingerLower != nil && s.RSI != nil && price <= *s.BollingerLower*bollingerTouchTol && *s.RSI < bollingerRSIMax {
        add(10, "Lower Bollinger band touch at %.2f with RSI %.1f", *s.BollingerLower, *s.RSI)
    }

    if c.EarningsSoon {
        add(-20, "Earnings report within 48h")
    }

    if rs := c.RelativeStrength; rs != nil {
        switch {
        case *rs >= 1.15:
            add(20, "Strong outperformance vs index, RS %.2f", *rs)
        case *rs >= 1.05:
            add(10, "Outperformance vs index, RS %.2f", *rs)
        case *rs < 0.90:
            add(-10, "Underperformance vs index, RS %.2f", *rs)
        }
    }

    return score, reasons
}

// maProximity applies the directional band test: [0, +2%] above the average
// is a bounce bonus, (-2%, 0) below is a breakdown penalty.
func maProximity(add func(int, string, ...interface{}), name string, price float64, ma *float64) {
    if ma == nil || *ma <= 0 {
        return
    }
    dist := (price - *ma) / *ma
    switch {
    case dist >= 0 && dist <= maBand:
        add(15, "Price %.1f%% above %s %.2f", dist*100, name, *ma)
    case dist < 0 && dist > -maBand:
        add(-10, "Price %.1f%% below %s %.2f", -dist*100, name, *ma)
    }
}

// histogramRising reports a positive histogram that grew from the prior bar.
// A missing prior histogram only requires the current one to be positive.
func histogramRising(s *models.IndicatorSnapshot) bool {
    if s.MACDHistogram == nil || *s.MACDHistogram <= 0 {
        return false
    }
    return s.MACDHistogramPrev == nil || *s.MACDHistogram > *s.MACDHistogramPrev
}
