package analytics

import (
    "github.com/shopspring/decimal"
)

// SizingParams are the portfolio constraints for one sizing decision.
type SizingParams struct {
    Equity          float64
    CashBuffer      float64
    MaxPositions    int
    MaxPositionSize float64
}

// ConfidenceFactor scales the slot cap by signal confidence.
func ConfidenceFactor(confidence int) float64 {
    switch {
    case confidence >= 80:
        return 1.0
    case confidence >= 70:
        return 0.85
    case confidence >= 60:
        return 0.7
    default:
        return 0.5
    }
}

// VolatilityFactor halves the allocation for names moving 5% or more a day.
func VolatilityFactor(atrPct *float64) float64 {
    if atrPct != nil && *atrPct >= 0.05 {
        return 0.5
    }
    return 1.0
}

// SlotCap is the most capital a single position may take.
func SlotCap(p SizingParams) decimal.Decimal {
    if p.MaxPositions <= 0 {
        return decimal.Zero
    }
    perSlot := decimal.NewFromFloat(p.Equity - p.CashBuffer).Div(decimal.NewFromInt(int64(p.MaxPositions)))
    limit := decimal.NewFromFloat(p.MaxPositionSize)
    c := decimal.Min(limit, perSlot)
    if c.IsNegative() {
        return decimal.Zero
    }
    return c
}

// PositionSize returns the capital to allocate, rounded to öre. It is never
// negative and never exceeds SlotCap.
func PositionSize(confidence int, atrPct *float64, p SizingParams) float64 {
    value := SlotCap(p).
        Mul(decimal.NewFromFloat(ConfidenceFactor(confidence))).
        Mul(decimal.NewFromFloat(VolatilityFactor(atrPct))).
        RoundFloor(2)
    if value.IsNegative() {
        return 0
    }
    f, _ := value.Float64()
    return f
}

// Quantity is the whole number of shares value buys at price.
func Quantity(value, price float64) int {
    if price <= 0 || value <= 0 {
        return 0
    }
    return int(decimal.NewFromFloat(value).Div(decimal.NewFromFloat(price)).Floor().IntPart())
}
