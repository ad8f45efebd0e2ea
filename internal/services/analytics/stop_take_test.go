package analytics

import (
    "testing"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
)

func TestStopTakeWithATR(t *testing.T) {
    stop, take := StopTake(100, f(2), models.StrategyConfig{StopLossPct: 0.05, TakeProfitPct: 0.10, ATRMultiplier: 1.5})
    assert.Equal(t, 97.0, stop)
    assert.Equal(t, 110.0, take)
}

func TestStopTakeFixedFallback(t *testing.T) {
    stop, take := StopTake(250, nil, models.StrategyConfig{StopLossPct: 0.04, TakeProfitPct: 0.08})
    assert.Equal(t, 240.0, stop)
    assert.Equal(t, 270.0, take)

    stop, take = StopTake(100, nil, models.StrategyConfig{})
    assert.Equal(t, 95.0, stop)
    assert.Equal(t, 110.0, take)
}

func TestStopTakeRoundsToOre(t *testing.T) {
    stop, take := StopTake(123.456, f(1.111), models.StrategyConfig{StopLossPct: 0.05, TakeProfitPct: 0.1, ATRMultiplier: 1.3})
    assert.Equal(t, 122.01, stop)
    assert.Equal(t, 135.8, take)
}

func TestDeriveStrategy(t *testing.T) {
    t.Run("calm trend follower", func(t *testing.T) {
        s := bare(100)
        s.ATR = f(1)
        s.RSI = f(55)
        s.MA50 = f(95)
        name, cfg := DeriveStrategy(s)
        assert.Equal(t, models.StrategyTrendFollowing, name)
        assert.Equal(t, 0.03, cfg.StopLossPct)
        assert.Equal(t, 0.06, cfg.TakeProfitPct)
    })
    t.Run("oversold under MA50", func(t *testing.T) {
        s := bare(100)
        s.ATR = f(4)
        s.RSI = f(35)
        s.MA50 = f(110)
        name, cfg := DeriveStrategy(s)
        assert.Equal(t, models.StrategyMeanReversion, name)
        assert.Equal(t, 0.06, cfg.StopLossPct)
        assert.Equal(t, 0.12, cfg.TakeProfitPct)
    })
    t.Run("very volatile is capped", func(t *testing.T) {
        s := bare(100)
        s.ATR = f(10)
        _, cfg := DeriveStrategy(s)
        assert.Equal(t, 0.09, cfg.StopLossPct)
        assert.Equal(t, 0.18, cfg.TakeProfitPct)
    })
    t.Run("defaults without indicators", func(t *testing.T) {
        name, cfg := DeriveStrategy(bare(100))
        assert.Equal(t, models.StrategyTrendFollowing, name)
        assert.Equal(t, 0.03, cfg.StopLossPct)
        assert.Equal(t, 0.06, cfg.TakeProfitPct)
    })
}
