package analytics

import (
    "Aktiemotor/internal/domain/models"
)

// OpportunityScore ranks tickers on one comparable scale: the buy score
// adjusted for relative-strength quality, volume confirmation, volatility
// and regime. It is used only for ranking and rotation.
func OpportunityScore(s *models.IndicatorSnapshot, c SignalContext) float64 {
    if s == nil {
        return 0
    }
    base, _ := ScoreBuy(s, c)
    score := float64(base)

    if rs := c.RelativeStrength; rs != nil {
        switch {
        case *rs >= 1.10:
            score += 10
        case *rs >= 1.0:
            score += 5
        case *rs < 0.90:
            score -= 10
        }
    }

    if s.VolumeRatio >= volumeSpike && s.DailyReturn != nil && *s.DailyReturn > 0 {
        score += 5
    }

    if atrPct := s.ATRPct(); atrPct != nil {
        switch {
        case *atrPct > 0.06:
            score -= 10
        case *atrPct > 0.04:
            score -= 5
        }
    }

    switch c.Regime {
    case models.RegimeBull:
        score += 5
    case models.RegimeBullEarly:
        score += 2
    case models.RegimeBear:
        score -= 5
    }
    return score
}
