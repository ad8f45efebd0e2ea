package analytics

import (
    "testing"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
)

func TestScoreSellVolatilityScaledPnL(t *testing.T) {
    pos := models.Position{Ticker: "TEST", EntryPrice: 100, Quantity: 10}
    strategy := models.DefaultStrategyConfig()

    // ATR 2 on entry 100: loss band -3%, severe -5%, realize +6%
    cases := []struct {
        name  string
        price float64
        want  int
    }{
        {"flat", 101, 0},
        {"moderate loss", 96, 20},
        {"severe loss", 94, 40},
        {"realize gain", 107, 20},
        {"small gain", 104, 0},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            s := bare(tc.price)
            s.ATR = f(2)
            score, _ := ScoreSell(s, pos, bull(), strategy)
            assert.Equal(t, tc.want, score)
        })
    }
}

func TestScoreSellFixedFallbackWithoutATR(t *testing.T) {
    pos := models.Position{Ticker: "TEST", EntryPrice: 100, Quantity: 10}
    strategy := models.StrategyConfig{StopLossPct: 0.05, TakeProfitPct: 0.10}

    score, _ := ScoreSell(bare(96), pos, bull(), strategy)
    assert.Zero(t, score)

    score, _ = ScoreSell(bare(94), pos, bull(), strategy)
    assert.Equal(t, 20, score)

    score, _ = ScoreSell(bare(91), pos, bull(), strategy)
    assert.Equal(t, 40, score)

    score, reasons := ScoreSell(bare(111), pos, bull(), strategy)
    assert.Equal(t, 20, score)
    assert.True(t, hasReason(reasons, "consider realizing"))
}

func TestScoreSellSameLossDifferentVolatility(t *testing.T) {
    pos := models.Position{Ticker: "TEST", EntryPrice: 100, Quantity: 10}

    calm := bare(96)
    calm.ATR = f(1)
    wild := bare(96)
    wild.ATR = f(4)

    calmScore, _ := ScoreSell(calm, pos, bull(), models.DefaultStrategyConfig())
    wildScore, _ := ScoreSell(wild, pos, bull(), models.DefaultStrategyConfig())
    assert.Equal(t, 40, calmScore)
    assert.Zero(t, wildScore)
}

func TestScoreSellTechnicalRules(t *testing.T) {
    pos := models.Position{Ticker: "TEST", EntryPrice: 100, Quantity: 10}
    s := bare(100)
    s.ATR = f(2)
    s.RSI = f(74)
    s.MACDPrev, s.MACDSignalPrev = f(0.3), f(0.2)
    s.MACD, s.MACDSignal = f(0.1), f(0.2)
    s.MA50 = f(102)
    c := SignalContext{
        Regime:           models.RegimeBull,
        Sentiment:        &models.SentimentResult{Sentiment: models.SentimentNegative, Reason: "profit warning"},
        RelativeStrength: f(0.85),
    }

    score, reasons := ScoreSell(s, pos, c, models.DefaultStrategyConfig())
    assert.Equal(t, 25+20+15+20+15, score)
    assert.Len(t, reasons, 5)
    assert.True(t, hasReason(reasons, "MACD bearish crossover"))
    assert.True(t, hasReason(reasons, "profit warning"))
}

func TestScoreSellNilSnapshot(t *testing.T) {
    score, reasons := ScoreSell(nil, models.Position{EntryPrice: 100}, bull(), models.DefaultStrategyConfig())
    assert.Zero(t, score)
    assert.Empty(t, reasons)
}
