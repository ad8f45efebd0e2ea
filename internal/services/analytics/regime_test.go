package analytics

import (
    "testing"
    "time"

    "Aktiemotor/internal/domain/models"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func series(closes []float64, spread, volume float64) []models.Bar {
    start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
    out := make([]models.Bar, len(closes))
    for i, c := range closes {
        out[i] = models.Bar{
            Date:   start.AddDate(0, 0, i),
            Open:   c,
            High:   c + spread,
            Low:    c - spread,
            Close:  c,
            Volume: volume,
        }
    }
    return out
}

func line(n int, start, step float64) []float64 {
    out := make([]float64, n)
    for i := range out {
        out[i] = start + float64(i)*step
    }
    return out
}

func TestClassifyRegime(t *testing.T) {
    t.Run("short history is neutral", func(t *testing.T) {
        st := ClassifyRegime(series(line(199, 100, 1), 1, 1e6))
        assert.Equal(t, models.RegimeNeutral, st.Regime)
        assert.Nil(t, st.MA200)
        assert.Equal(t, 298.0, st.IndexPrice)
    })
    t.Run("steady rise is bull", func(t *testing.T) {
        st := ClassifyRegime(series(line(250, 100, 1), 1, 1e6))
        assert.Equal(t, models.RegimeBull, st.Regime)
        require.NotNil(t, st.MA50)
        require.NotNil(t, st.MA200)
        assert.Greater(t, *st.MA50, *st.MA200)
    })
    t.Run("steady fall is bear", func(t *testing.T) {
        st := ClassifyRegime(series(line(250, 400, -1), 1, 1e6))
        assert.Equal(t, models.RegimeBear, st.Regime)
    })
    t.Run("flat is neutral", func(t *testing.T) {
        st := ClassifyRegime(series(line(250, 100, 0), 1, 1e6))
        assert.Equal(t, models.RegimeNeutral, st.Regime)
    })
    t.Run("rally above MA50 before the golden cross is early bull", func(t *testing.T) {
        closes := append(line(150, 120, 0), line(99, 100, 0)...)
        closes = append(closes, 130)
        st := ClassifyRegime(series(closes, 1, 1e6))
        assert.Equal(t, models.RegimeBullEarly, st.Regime)
        assert.Less(t, *st.MA50, *st.MA200)
    })
    t.Run("empty", func(t *testing.T) {
        assert.Equal(t, models.RegimeNeutral, ClassifyRegime(nil).Regime)
    })
}

func TestRegimeOrderingMatchesThresholds(t *testing.T) {
    rising := ClassifyRegime(series(line(250, 100, 1), 1, 1e6)).Regime
    falling := ClassifyRegime(series(line(250, 400, -1), 1, 1e6)).Regime
    assert.Less(t, EffectiveBuyThreshold(60, rising, 0), EffectiveBuyThreshold(60, falling, 0))
    assert.Greater(t, EffectiveSellThreshold(55, rising, 0), EffectiveSellThreshold(55, falling, 0))
}
