package analytics

import (
    "fmt"

    "Aktiemotor/internal/domain/models"
)

// ThresholdTable holds the regime and liquidity adjustments applied to the
// configured base thresholds.
type ThresholdTable struct {
    BuyOffsets       map[models.MarketRegime]int `yaml:"buy_offsets"`
    SellOffsets      map[models.MarketRegime]int `yaml:"sell_offsets"`
    IlliquidTurnover float64                     `yaml:"illiquid_turnover"`
    IlliquidBuy      int                         `yaml:"illiquid_buy"`
    IlliquidSell     int                         `yaml:"illiquid_sell"`
    BuyMin           int                         `yaml:"buy_min"`
    BuyMax           int                         `yaml:"buy_max"`
    SellMin          int                         `yaml:"sell_min"`
    SellMax          int                         `yaml:"sell_max"`
}

// DefaultThresholdTable makes buys harder and exits earlier in weak markets.
func DefaultThresholdTable() ThresholdTable {
    return ThresholdTable{
        BuyOffsets: map[models.MarketRegime]int{
            models.RegimeBear:      15,
            models.RegimeNeutral:   5,
            models.RegimeBullEarly: -3,
            models.RegimeBull:      -5,
        },
        SellOffsets: map[models.MarketRegime]int{
            models.RegimeBear:      -10,
            models.RegimeNeutral:   0,
            models.RegimeBullEarly: 5,
            models.RegimeBull:      10,
        },
        IlliquidTurnover: 50_000_000,
        IlliquidBuy:      5,
        IlliquidSell:     -5,
        BuyMin:           50,
        BuyMax:           85,
        SellMin:          40,
        SellMax:          75,
    }
}

// Illiquid reports whether a known turnover is below the floor. Zero or
// negative turnover means unknown and is treated as liquid.
func (t ThresholdTable) Illiquid(turnover float64) bool {
    return turnover > 0 && turnover < t.IlliquidTurnover
}

// Buy returns the effective buy threshold.
func (t ThresholdTable) Buy(base int, regime models.MarketRegime, turnover float64) int {
    v := base + t.BuyOffsets[regime]
    if t.Illiquid(turnover) {
        v += t.IlliquidBuy
    }
    return clampInt(v, t.BuyMin, t.BuyMax)
}

// Sell returns the effective sell threshold.
func (t ThresholdTable) Sell(base int, regime models.MarketRegime, turnover float64) int {
    v := base + t.SellOffsets[regime]
    if t.Illiquid(turnover) {
        v += t.IlliquidSell
    }
    return clampInt(v, t.SellMin, t.SellMax)
}

var defaultThresholds = DefaultThresholdTable()

// EffectiveBuyThreshold applies the default table.
func EffectiveBuyThreshold(base int, regime models.MarketRegime, turnover float64) int {
    return defaultThresholds.Buy(base, regime, turnover)
}

// EffectiveSellThreshold applies the default table.
func EffectiveSellThreshold(base int, regime models.MarketRegime, turnover float64) int {
    return defaultThresholds.Sell(base, regime, turnover)
}

func clampInt(v, lo, hi int) int {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

func clampFloat(v, lo, hi float64) float64 {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

// WithDefaults fills regimes missing from the offset maps. Scalar fields are
// taken as given, so a table decoded over DefaultThresholdTable keeps an
// explicit zero.
func (t ThresholdTable) WithDefaults() ThresholdTable {
    d := DefaultThresholdTable()
    t.BuyOffsets = mergeOffsets(t.BuyOffsets, d.BuyOffsets)
    t.SellOffsets = mergeOffsets(t.SellOffsets, d.SellOffsets)
    return t
}

// regimeOrder runs from the weakest to the strongest market.
var regimeOrder = []models.MarketRegime{
    models.RegimeBear,
    models.RegimeNeutral,
    models.RegimeBullEarly,
    models.RegimeBull,
}

// Validate checks that buying never gets easier and selling never gets
// earlier as the regime weakens, and that the clamps are well formed.
func (t ThresholdTable) Validate() error {
    for i := 1; i < len(regimeOrder); i++ {
        weaker, stronger := regimeOrder[i-1], regimeOrder[i]
        if t.BuyOffsets[weaker] < t.BuyOffsets[stronger] {
            return fmt.Errorf("buy offset %s (%d) below %s (%d)", weaker, t.BuyOffsets[weaker], stronger, t.BuyOffsets[stronger])
        }
        if t.SellOffsets[weaker] > t.SellOffsets[stronger] {
            return fmt.Errorf("sell offset %s (%d) above %s (%d)", weaker, t.SellOffsets[weaker], stronger, t.SellOffsets[stronger])
        }
    }
    if t.BuyMin > t.BuyMax {
        return fmt.Errorf("buy clamp [%d, %d] is empty", t.BuyMin, t.BuyMax)
    }
    if t.SellMin > t.SellMax {
        return fmt.Errorf("sell clamp [%d, %d] is empty", t.SellMin, t.SellMax)
    }
    if t.IlliquidTurnover < 0 {
        return fmt.Errorf("illiquid turnover %.0f is negative", t.IlliquidTurnover)
    }
    return nil
}

// mergeOffsets fills regimes missing from custom with the defaults.
func mergeOffsets(custom, defaults map[models.MarketRegime]int) map[models.MarketRegime]int {
    out := make(map[models.MarketRegime]int, len(defaults))
    for r, v := range defaults {
        out[r] = v
    }
    for r, v := range custom {
        out[r] = v
    }
    return out
}
