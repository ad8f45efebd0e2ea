package analytics

import (
    "testing"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
)

func TestShouldRotateMargin(t *testing.T) {
    assert.False(t, ShouldRotate(70, 65, 15))
    assert.False(t, ShouldRotate(80, 65, 15), "equal to weakest plus margin is not enough")
    assert.True(t, ShouldRotate(85, 65, 15))
}

func TestDecideRotationPicksWeakestScorable(t *testing.T) {
    holdings := []HoldingScore{
        {Ticker: "EVO", Score: f(72)},
        {Ticker: "SINCH", Score: nil},
        {Ticker: "HTRO", Score: f(65)},
    }

    d := DecideRotation(70, holdings, DefaultRotationMargin)
    assert.False(t, d.Rotate)
    assert.Equal(t, "HTRO", d.Weakest)
    assert.Equal(t, 65.0, d.WeakestScore)

    d = DecideRotation(85, holdings, DefaultRotationMargin)
    assert.True(t, d.Rotate)
    assert.Equal(t, "HTRO", d.Weakest)
    assert.Contains(t, d.Reason, "HTRO")
}

func TestDecideRotationNothingScorable(t *testing.T) {
    d := DecideRotation(99, []HoldingScore{{Ticker: "EVO"}, {Ticker: "SINCH"}}, DefaultRotationMargin)
    assert.False(t, d.Rotate)
    assert.Empty(t, d.Weakest)

    d = DecideRotation(99, nil, DefaultRotationMargin)
    assert.False(t, d.Rotate)
}

func TestSlotAvailable(t *testing.T) {
    assert.True(t, SlotAvailable(2, 3))
    assert.False(t, SlotAvailable(3, 3))
}

func TestOpportunityScoreAdjustments(t *testing.T) {
    s := bare(100)
    s.ATR = f(5) // 5% of price
    s.VolumeRatio = 1.8
    s.DailyReturn = f(0.01)
    c := SignalContext{Regime: models.RegimeBull, RelativeStrength: f(1.12)}

    base, _ := ScoreBuy(s, c)
    // +10 RS quality, +5 volume confirmation, -5 volatility, +5 bull regime
    assert.Equal(t, float64(base)+15, OpportunityScore(s, c))

    assert.Zero(t, OpportunityScore(nil, c))
}

func TestOpportunityScorePenalisesBearAndVolatility(t *testing.T) {
    s := bare(100)
    s.ATR = f(7)
    c := SignalContext{Regime: models.RegimeBear}
    base, _ := ScoreBuy(s, c)
    assert.Equal(t, float64(base)-15, OpportunityScore(s, c))
}
