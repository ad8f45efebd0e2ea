package analytics

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestPositionSizeExample(t *testing.T) {
    p := SizingParams{Equity: 10000, CashBuffer: 2000, MaxPositions: 4, MaxPositionSize: 2500}
    assert.InDelta(t, 1000.0, PositionSize(85, f(0.07), p), 1e-9)
    assert.InDelta(t, 2000.0, PositionSize(85, f(0.02), p), 1e-9)
    assert.InDelta(t, 1400.0, PositionSize(65, nil, p), 1e-9)
}

func TestPositionSizeBounds(t *testing.T) {
    params := []SizingParams{
        {Equity: 10000, CashBuffer: 2000, MaxPositions: 3, MaxPositionSize: 2500},
        {Equity: 1500, CashBuffer: 2000, MaxPositions: 3, MaxPositionSize: 2500},
        {Equity: 100000, CashBuffer: 0, MaxPositions: 2, MaxPositionSize: 2500},
        {Equity: 9999.99, CashBuffer: 0, MaxPositions: 7, MaxPositionSize: 1e6},
        {Equity: 5000, CashBuffer: 0, MaxPositions: 0, MaxPositionSize: 2500},
    }
    for _, p := range params {
        limit, _ := SlotCap(p).Float64()
        for _, conf := range []int{0, 55, 60, 70, 80, 99} {
            for _, atr := range []*float64{nil, f(0.01), f(0.05), f(0.2)} {
                v := PositionSize(conf, atr, p)
                assert.GreaterOrEqual(t, v, 0.0)
                assert.LessOrEqual(t, v, limit+1e-9)
            }
        }
    }
}

func TestSlotCap(t *testing.T) {
    cap1, _ := SlotCap(SizingParams{Equity: 10000, CashBuffer: 2000, MaxPositions: 3, MaxPositionSize: 2500}).Float64()
    assert.InDelta(t, 2500.0, cap1, 1e-9)
    assert.True(t, SlotCap(SizingParams{Equity: 1000, CashBuffer: 2000, MaxPositions: 3, MaxPositionSize: 2500}).IsZero())
}

func TestFactors(t *testing.T) {
    assert.Equal(t, 1.0, ConfidenceFactor(80))
    assert.Equal(t, 0.85, ConfidenceFactor(79))
    assert.Equal(t, 0.7, ConfidenceFactor(60))
    assert.Equal(t, 0.5, ConfidenceFactor(59))
    assert.Equal(t, 0.5, VolatilityFactor(f(0.05)))
    assert.Equal(t, 1.0, VolatilityFactor(f(0.049)))
    assert.Equal(t, 1.0, VolatilityFactor(nil))
}

func TestQuantity(t *testing.T) {
    assert.Equal(t, 6, Quantity(1000, 150))
    assert.Equal(t, 10, Quantity(1000, 100))
    assert.Zero(t, Quantity(1000, 0))
    assert.Zero(t, Quantity(50, 100))
}
