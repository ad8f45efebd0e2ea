package analytics

import (
    "github.com/shopspring/decimal"

    "Aktiemotor/internal/domain/models"
)

// StopTake places the protective stop ATR*multiplier under price (or a fixed
// percentage without ATR) and the target a fixed percentage above.
func StopTake(price float64, atr *float64, cfg models.StrategyConfig) (stop, take float64) {
    d := models.DefaultStrategyConfig()
    if cfg.ATRMultiplier <= 0 {
        cfg.ATRMultiplier = d.ATRMultiplier
    }
    if cfg.StopLossPct <= 0 {
        cfg.StopLossPct = d.StopLossPct
    }
    if cfg.TakeProfitPct <= 0 {
        cfg.TakeProfitPct = d.TakeProfitPct
    }

    p := decimal.NewFromFloat(price)
    var sl decimal.Decimal
    if atr != nil && *atr > 0 {
        sl = p.Sub(decimal.NewFromFloat(*atr).Mul(decimal.NewFromFloat(cfg.ATRMultiplier)))
    } else {
        sl = p.Mul(decimal.NewFromFloat(1 - cfg.StopLossPct))
    }
    tp := p.Mul(decimal.NewFromFloat(1 + cfg.TakeProfitPct))

    stop, _ = sl.Round(2).Float64()
    take, _ = tp.Round(2).Float64()
    return stop, take
}

// DeriveStrategy sizes stop and target from the stock's own volatility and
// picks mean reversion for oversold names trading under MA50.
func DeriveStrategy(s *models.IndicatorSnapshot) (string, models.StrategyConfig) {
    cfg := models.DefaultStrategyConfig()
    if s == nil {
        return models.StrategyTrendFollowing, cfg
    }
    atrPct := 0.02
    if p := s.ATRPct(); p != nil {
        atrPct = *p
    }
    cfg.StopLossPct = round3(clampFloat(atrPct*1.5, 0.03, 0.09))
    cfg.TakeProfitPct = round3(clampFloat(atrPct*3.0, 0.06, 0.18))

    rsi := 50.0
    if s.RSI != nil {
        rsi = *s.RSI
    }
    if rsi < 40 && s.MA50 != nil && s.CurrentPrice < *s.MA50 {
        return models.StrategyMeanReversion, cfg
    }
    return models.StrategyTrendFollowing, cfg
}

func round3(v float64) float64 {
    f, _ := decimal.NewFromFloat(v).Round(3).Float64()
    return f
}
