package analytics

import (
    "testing"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var regimesWeakToStrong = []models.MarketRegime{
    models.RegimeBear, models.RegimeNeutral, models.RegimeBullEarly, models.RegimeBull,
}

func TestBuyThresholdFallsAsRegimeStrengthens(t *testing.T) {
    for _, base := range []int{50, 60, 70} {
        prev := 1 << 30
        for _, r := range regimesWeakToStrong {
            th := EffectiveBuyThreshold(base, r, 0)
            assert.LessOrEqual(t, th, prev, "base %d regime %s", base, r)
            prev = th
        }
    }
    assert.Equal(t, 75, EffectiveBuyThreshold(60, models.RegimeBear, 0))
    assert.Equal(t, 65, EffectiveBuyThreshold(60, models.RegimeNeutral, 0))
    assert.Equal(t, 57, EffectiveBuyThreshold(60, models.RegimeBullEarly, 0))
    assert.Equal(t, 55, EffectiveBuyThreshold(60, models.RegimeBull, 0))
}

func TestSellThresholdRisesAsRegimeStrengthens(t *testing.T) {
    prev := -1
    for _, r := range regimesWeakToStrong {
        th := EffectiveSellThreshold(55, r, 0)
        assert.GreaterOrEqual(t, th, prev, "regime %s", r)
        prev = th
    }
    assert.Equal(t, 45, EffectiveSellThreshold(55, models.RegimeBear, 0))
    assert.Equal(t, 65, EffectiveSellThreshold(55, models.RegimeBull, 0))
}

func TestThresholdsClamp(t *testing.T) {
    assert.Equal(t, 85, EffectiveBuyThreshold(80, models.RegimeBear, 10_000_000))
    assert.Equal(t, 50, EffectiveBuyThreshold(30, models.RegimeBull, 0))
    assert.Equal(t, 40, EffectiveSellThreshold(30, models.RegimeBear, 10_000_000))
    assert.Equal(t, 75, EffectiveSellThreshold(80, models.RegimeBull, 0))
}

func TestThresholdsIlliquidity(t *testing.T) {
    assert.Equal(t, 70, EffectiveBuyThreshold(60, models.RegimeNeutral, 20_000_000))
    assert.Equal(t, 65, EffectiveBuyThreshold(60, models.RegimeNeutral, 60_000_000))
    assert.Equal(t, 65, EffectiveBuyThreshold(60, models.RegimeNeutral, 0), "unknown turnover is liquid")
    assert.Equal(t, 50, EffectiveSellThreshold(55, models.RegimeNeutral, 20_000_000))
}

func TestThresholdTableWithDefaults(t *testing.T) {
    custom := DefaultThresholdTable()
    custom.BuyOffsets = nil
    custom.IlliquidBuy = 0
    custom = custom.WithDefaults()
    assert.Equal(t, 0, custom.IlliquidBuy, "explicit zero survives")
    assert.Equal(t, 15, custom.BuyOffsets[models.RegimeBear])
    assert.Equal(t, 65, custom.Buy(60, models.RegimeNeutral, 1_000_000))

    partial := DefaultThresholdTable()
    partial.SellOffsets = map[models.MarketRegime]int{models.RegimeBear: -15}
    partial = partial.WithDefaults()
    assert.Equal(t, -15, partial.SellOffsets[models.RegimeBear])
    assert.Equal(t, 10, partial.SellOffsets[models.RegimeBull])
}

func TestThresholdTableValidate(t *testing.T) {
    require.NoError(t, DefaultThresholdTable().Validate())

    cases := map[string]func(*ThresholdTable){
        "buy easier in bear": func(t *ThresholdTable) { t.BuyOffsets[models.RegimeBear] = -10 },
        "buy easier early":   func(t *ThresholdTable) { t.BuyOffsets[models.RegimeBullEarly] = -8 },
        "sell later in bear": func(t *ThresholdTable) { t.SellOffsets[models.RegimeBear] = 5 },
        "empty buy clamp":    func(t *ThresholdTable) { t.BuyMin, t.BuyMax = 90, 80 },
        "empty sell clamp":   func(t *ThresholdTable) { t.SellMin, t.SellMax = 60, 50 },
        "negative turnover":  func(t *ThresholdTable) { t.IlliquidTurnover = -1 },
    }
    for name, mutate := range cases {
        tbl := DefaultThresholdTable()
        mutate(&tbl)
        assert.Error(t, tbl.Validate(), name)
    }

    flat := DefaultThresholdTable()
    for _, r := range regimeOrder {
        flat.BuyOffsets[r] = 0
        flat.SellOffsets[r] = 0
    }
    assert.NoError(t, flat.Validate(), "equal offsets are allowed")
}
