package analytics

import (
    "fmt"
    "strings"
    "testing"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return models.Float(v) }

// bare returns a snapshot with nothing but a price and neutral volume.
func bare(price float64) *models.IndicatorSnapshot {
    return &models.IndicatorSnapshot{Ticker: "TEST", CurrentPrice: price, VolumeRatio: 1.0}
}

func bull() SignalContext { return SignalContext{Regime: models.RegimeBull} }

func hasReason(reasons []string, fragment string) bool {
    for _, r := range reasons {
        if strings.Contains(r, fragment) {
            return true
        }
    }
    return false
}

func TestScoreBuyNilSnapshot(t *testing.T) {
    score, reasons := ScoreBuy(nil, bull())
    assert.Zero(t, score)
    assert.Empty(t, reasons)
}

func TestScoreBuyRegimePenalty(t *testing.T) {
    cases := []struct {
        regime models.MarketRegime
        want   int
    }{
        {models.RegimeBull, 0},
        {models.RegimeBullEarly, 0},
        {models.RegimeNeutral, -10},
        {models.RegimeBear, -20},
    }
    for _, tc := range cases {
        t.Run(string(tc.regime), func(t *testing.T) {
            score, _ := ScoreBuy(bare(100), SignalContext{Regime: tc.regime})
            assert.Equal(t, tc.want, score)
        })
    }
}

func TestScoreBuyMissingRSIContributesNothing(t *testing.T) {
    s := bare(100)
    s.MA200 = f(90)
    score, reasons := ScoreBuy(s, bull())
    assert.Zero(t, score)
    assert.False(t, hasReason(reasons, "RSI"))
}

func TestScoreBuyOversoldRSI(t *testing.T) {
    t.Run("above MA200", func(t *testing.T) {
        s := bare(100)
        s.RSI = f(30)
        s.MA200 = f(90)
        score, reasons := ScoreBuy(s, bull())
        assert.Equal(t, 25, score)
        assert.True(t, hasReason(reasons, "RSI 30.0 oversold above MA200"))
    })
    t.Run("below MA200", func(t *testing.T) {
        s := bare(100)
        s.RSI = f(30)
        s.MA200 = f(120)
        score, _ := ScoreBuy(s, bull())
        assert.Equal(t, 15, score)
    })
    t.Run("no MA200", func(t *testing.T) {
        s := bare(100)
        s.RSI = f(30)
        score, _ := ScoreBuy(s, bull())
        assert.Equal(t, 15, score)
    })
    t.Run("not oversold", func(t *testing.T) {
        s := bare(100)
        s.RSI = f(35)
        score, _ := ScoreBuy(s, bull())
        assert.Zero(t, score)
    })
}

func TestScoreBuyMACD(t *testing.T) {
    t.Run("confirmed crossover", func(t *testing.T) {
        s := bare(100)
        s.MACDPrev, s.MACDSignalPrev = f(-0.2), f(-0.1)
        s.MACD, s.MACDSignal = f(0.3), f(0.1)
        s.MACDHistogram, s.MACDHistogramPrev = f(0.2), f(-0.1)
        score, reasons := ScoreBuy(s, bull())
        assert.Equal(t, 20, score, "momentum bonus is not added on a crossover bar")
        assert.True(t, hasReason(reasons, "MACD bullish crossover"))
        assert.False(t, hasReason(reasons, "momentum"))
    })
    t.Run("unconfirmed crossover", func(t *testing.T) {
        s := bare(100)
        s.MACDPrev, s.MACDSignalPrev = f(-0.2), f(-0.1)
        s.MACD, s.MACDSignal = f(0.15), f(0.1)
        score, reasons := ScoreBuy(s, bull())
        assert.Equal(t, 12, score, "no histogram reported")
        assert.True(t, hasReason(reasons, "unconfirmed"))

        s.MACDHistogram, s.MACDHistogramPrev = f(0.05), f(0.08)
        score, reasons = ScoreBuy(s, bull())
        assert.Equal(t, 12, score, "histogram shrinking")
        assert.True(t, hasReason(reasons, "unconfirmed"))
    })
    t.Run("touching the signal line is not a crossover", func(t *testing.T) {
        s := bare(100)
        s.MACDPrev, s.MACDSignalPrev = f(0.1), f(0.4)
        s.MACD, s.MACDSignal = f(0.5), f(0.5)
        score, reasons := ScoreBuy(s, bull())
        assert.Zero(t, score)
        assert.Empty(t, reasons)
    })
    t.Run("partial values never fire", func(t *testing.T) {
        s := bare(100)
        s.MACDSignalPrev = f(-0.1)
        s.MACD, s.MACDSignal = f(0.3), f(0.1)
        score, reasons := ScoreBuy(s, bull())
        assert.Zero(t, score)
        assert.Empty(t, reasons)
    })
    t.Run("momentum continuation", func(t *testing.T) {
        s := bare(100)
        s.MACDPrev, s.MACDSignalPrev = f(0.2), f(0.1)
        s.MACD, s.MACDSignal = f(0.4), f(0.2)
        s.MACDHistogram, s.MACDHistogramPrev = f(0.2), f(0.1)
        score, reasons := ScoreBuy(s, bull())
        assert.Equal(t, 8, score)
        assert.True(t, hasReason(reasons, "momentum"))
    })
    t.Run("fading histogram", func(t *testing.T) {
        s := bare(100)
        s.MACDHistogram, s.MACDHistogramPrev = f(0.1), f(0.2)
        score, _ := ScoreBuy(s, bull())
        assert.Zero(t, score)
    })
}

func TestScoreBuyMovingAverageBands(t *testing.T) {
    cases := []struct {
        name  string
        price float64
        want  int
    }{
        {"exactly on the average", 100, 15},
        {"one percent above", 101, 15},
        {"two percent above", 102, 15},
        {"beyond the band", 102.5, 0},
        {"just below", 99.9, -10},
        {"one percent below", 99, -10},
        {"two percent below", 98, 0},
    }
    for _, tc := range cases {
        t.Run("MA50 "+tc.name, func(t *testing.T) {
            s := bare(tc.price)
            s.MA50 = f(100)
            score, _ := ScoreBuy(s, bull())
            assert.Equal(t, tc.want, score)
        })
        t.Run("MA200 "+tc.name, func(t *testing.T) {
            s := bare(tc.price)
            s.MA200 = f(100)
            score, _ := ScoreBuy(s, bull())
            assert.Equal(t, tc.want, score)
        })
    }
}

func TestScoreBuyVolumeNeverRewardsDownDays(t *testing.T) {
    for _, ratio := range []float64{1.5, 2, 5, 50} {
        s := bare(100)
        s.VolumeRatio = ratio
        s.DailyReturn = f(-0.004)
        score, reasons := ScoreBuy(s, bull())
        assert.Zero(t, score, "ratio %.1f", ratio)
        assert.False(t, hasReason(reasons, "Volume"))
    }
}

func TestScoreBuyVolumeTiers(t *testing.T) {
    up := bare(100)
    up.VolumeRatio = 1.6
    up.DailyReturn = f(0.012)
    score, _ := ScoreBuy(up, bull())
    assert.Equal(t, 15, score)

    flat := bare(100)
    flat.VolumeRatio = 1.6
    flat.DailyReturn = f(0.0005)
    score, _ = ScoreBuy(flat, bull())
    assert.Equal(t, 5, score)

    unknown := bare(100)
    unknown.VolumeRatio = 1.6
    score, _ = ScoreBuy(unknown, bull())
    assert.Equal(t, 5, score)

    quiet := bare(100)
    quiet.VolumeRatio = 1.4
    quiet.DailyReturn = f(0.02)
    score, _ = ScoreBuy(quiet, bull())
    assert.Zero(t, score)
}

func TestScoreBuyPullbackAndGoldenCross(t *testing.T) {
    s := bare(110)
    s.RSI = f(45)
    s.MA50 = f(105)
    s.MA200 = f(95)
    score, reasons := ScoreBuy(s, bull())
    assert.Equal(t, 20, score)
    assert.True(t, hasReason(reasons, "Pullback"))
    assert.True(t, hasReason(reasons, "Golden cross"))

    s.MA50 = f(111) // price no longer above MA50, still golden cross
    score, reasons = ScoreBuy(s, bull())
    assert.Equal(t, 10+(-10), score, "golden cross plus MA50 breakdown band")
    assert.False(t, hasReason(reasons, "Pullback"))
}

func TestScoreBuyBollingerRequiresOversoldRSI(t *testing.T) {
    s := bare(100)
    s.BollingerLower = f(99.5)
    s.RSI = f(45)
    score, _ := ScoreBuy(s, bull())
    assert.Zero(t, score)

    s.RSI = f(38)
    score, reasons := ScoreBuy(s, bull())
    assert.Equal(t, 10, score)
    assert.True(t, hasReason(reasons, "Bollinger"))
}

func TestScoreBuyContext(t *testing.T) {
    c := SignalContext{
        Regime:       models.RegimeBull,
        Sentiment:    &models.SentimentResult{Sentiment: models.SentimentPositive, Score: 0.8, Reason: "order win"},
        InsiderBuy:   true,
        EarningsSoon: true,
    }
    score, reasons := ScoreBuy(bare(100), c)
    assert.Equal(t, 15+10-20, score)
    assert.Len(t, reasons, 3)

    neg := SignalContext{Regime: models.RegimeBull, Sentiment: &models.SentimentResult{Sentiment: models.SentimentNegative}}
    score, _ = ScoreBuy(bare(100), neg)
    assert.Zero(t, score)
}

func TestScoreBuyRelativeStrengthTiers(t *testing.T) {
    cases := map[float64]int{1.20: 20, 1.15: 20, 1.10: 10, 1.05: 10, 1.0: 0, 0.90: 0, 0.85: -10}
    for rs, want := range cases {
        c := bull()
        c.RelativeStrength = f(rs)
        score, _ := ScoreBuy(bare(100), c)
        assert.Equal(t, want, score, "rs %.2f", rs)
    }
}

func TestScoreBuyRoundTripClearsBullThreshold(t *testing.T) {
    s := bare(100)
    s.RSI = f(32)
    s.MA200 = f(95)
    s.MACDPrev, s.MACDSignalPrev = f(-0.3), f(-0.1)
    s.MACD, s.MACDSignal = f(0.25), f(0.05)
    s.MACDHistogram, s.MACDHistogramPrev = f(0.2), f(-0.2)
    s.VolumeRatio = 1.6
    s.DailyReturn = f(0.012)

    score, reasons := ScoreBuy(s, bull())
    threshold := EffectiveBuyThreshold(60, models.RegimeBull, 0)

    assert.Greater(t, score, threshold)
    require.Len(t, reasons, 3)
    assert.True(t, hasReason(reasons, "RSI"))
    assert.True(t, hasReason(reasons, "MACD bullish crossover"))
    assert.True(t, hasReason(reasons, "Volume"))
}

func TestScoreBuyEveryPointHasAReason(t *testing.T) {
    s := bare(100)
    s.RSI = f(30)
    s.MA50 = f(99)
    s.MA200 = f(98.5)
    s.BollingerLower = f(100)
    s.VolumeRatio = 2
    s.DailyReturn = f(0.01)
    c := SignalContext{Regime: models.RegimeNeutral, InsiderBuy: true, RelativeStrength: f(1.2)}

    score, reasons := ScoreBuy(s, c)
    sum := 0
    for _, r := range reasons {
        var pts int
        i := strings.LastIndex(r, "(")
        _, err := fmt.Sscanf(r[i:], "(%dp)", &pts)
        require.NoError(t, err, r)
        sum += pts
    }
    assert.Equal(t, score, sum)
}
