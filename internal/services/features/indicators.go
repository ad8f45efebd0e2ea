package features

import (
    "math"

    "Aktiemotor/internal/domain/models"
)

const (
    // MinBars is the shortest history that yields a snapshot.
    MinBars = 20

    rsiPeriod       = 14
    atrPeriod       = 14
    macdFast        = 12
    macdSlow        = 26
    macdSignal      = 9
    bollingerPeriod = 20
    bollingerWidth  = 2.0
    volumeWindow    = 20
)

// ComputeSnapshot turns an ascending OHLCV series into an indicator snapshot.
// It returns nil when the series has fewer than MinBars rows. Indicators whose
// own lookback is not covered are left nil.
func ComputeSnapshot(ticker string, bars []models.Bar) *models.IndicatorSnapshot {
    if len(bars) < MinBars {
        return nil
    }
    n := len(bars)
    closes := make([]float64, n)
    highs := make([]float64, n)
    lows := make([]float64, n)
    vols := make([]float64, n)
    for i, b := range bars {
        closes[i] = b.Close
        highs[i] = b.High
        lows[i] = b.Low
        vols[i] = b.Volume
    }

    s := &models.IndicatorSnapshot{
        Ticker:       ticker,
        CurrentPrice: closes[n-1],
    }

    s.RSI = opt(RSI(closes, rsiPeriod))

    macdLine, signalLine := MACD(closes)
    s.MACD = opt(last(macdLine))
    s.MACDPrev = opt(prev(macdLine))
    s.MACDSignal = opt(last(signalLine))
    s.MACDSignalPrev = opt(prev(signalLine))
    if s.MACD != nil && s.MACDSignal != nil {
        s.MACDHistogram = models.Float(*s.MACD - *s.MACDSignal)
    }
    if s.MACDPrev != nil && s.MACDSignalPrev != nil {
        s.MACDHistogramPrev = models.Float(*s.MACDPrev - *s.MACDSignalPrev)
    }

    s.MA20 = opt(SMA(closes, 20))
    s.MA50 = opt(SMA(closes, 50))
    s.MA200 = opt(SMA(closes, 200))
    s.EMA20 = opt(last(EMASeries(closes, 20)))

    mid := SMA(closes, bollingerPeriod)
    std := PopulationStd(closes, bollingerPeriod)
    s.BollingerMid = opt(mid)
    s.BollingerUpper = opt(mid + bollingerWidth*std)
    s.BollingerLower = opt(mid - bollingerWidth*std)

    s.ATR = opt(ATR(highs, lows, closes, atrPeriod))
    s.VolumeRatio = VolumeRatio(vols, volumeWindow)

    if p := closes[n-2]; p > 0 {
        s.DailyReturn = models.Float(closes[n-1]/p - 1)
    }
    return s
}

// MACD returns the 12/26 MACD line and its 9-period signal line, both aligned
// with closes and NaN where undefined.
func MACD(closes []float64) (macdLine, signalLine []float64) {
    fast := EMASeries(closes, macdFast)
    slow := EMASeries(closes, macdSlow)
    macdLine = make([]float64, len(closes))
    for i := range closes {
        macdLine[i] = fast[i] - slow[i]
    }
    signalLine = EMASeries(macdLine, macdSignal)
    return macdLine, signalLine
}

// VolumeRatio is the last volume over the mean of the last window volumes
// (the last bar included), rounded to two decimals. It is 1.0 when the mean
// is zero or undefined.
func VolumeRatio(volumes []float64, window int) float64 {
    avg := SMA(volumes, window)
    if math.IsNaN(avg) || avg <= 0 {
        return 1.0
    }
    return round(last(volumes)/avg, 2)
}
