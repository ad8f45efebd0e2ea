package analytics

import (
    "Aktiemotor/internal/domain/models"
    "Aktiemotor/internal/services/features"
)

const (
    regimeMinBars       = 200
    regimeSlopeLookback = 5
)

// ClassifyRegime labels the benchmark trend from the index's own MA50/MA200.
// Short histories are NEUTRAL.
func ClassifyRegime(index []models.Bar) models.RegimeState {
    st := models.RegimeState{Regime: models.RegimeNeutral}
    if len(index) == 0 {
        return st
    }
    closes := models.Closes(index)
    price := closes[len(closes)-1]
    st.IndexPrice = price
    if len(closes) < regimeMinBars {
        return st
    }

    ma50 := features.SMA(closes, 50)
    ma200 := features.SMA(closes, 200)
    ma50Before := features.SMA(closes[:len(closes)-regimeSlopeLookback], 50)
    st.MA50 = models.Float(ma50)
    st.MA200 = models.Float(ma200)

    switch {
    case price < ma200:
        st.Regime = models.RegimeBear
    case price > ma50 && ma50 > ma200 && ma50-ma50Before > 0:
        st.Regime = models.RegimeBull
    case price > ma50:
        st.Regime = models.RegimeBullEarly
    default:
        st.Regime = models.RegimeNeutral
    }
    return st
}
