package features

import (
    "math"
)

// SMA returns the simple mean of the last n values, or NaN if there are fewer than n.
func SMA(values []float64, n int) float64 {
    if n <= 0 || len(values) < n {
        return math.NaN()
    }
    sum := 0.0
    for _, v := range values[len(values)-n:] {
        sum += v
    }
    return sum / float64(n)
}

// EMASeries computes an exponential moving average aligned with values.
// The first n-1 entries are NaN and the n-th is seeded with the simple mean
// of the first n values. Leading NaNs in the input are skipped, so the
// series can be chained (EMA of an EMA-derived line).
func EMASeries(values []float64, n int) []float64 {
    out := make([]float64, len(values))
    for i := range out {
        out[i] = math.NaN()
    }
    start := 0
    for start < len(values) && math.IsNaN(values[start]) {
        start++
    }
    if n <= 0 || len(values)-start < n {
        return out
    }
    seed := 0.0
    for _, v := range values[start : start+n] {
        seed += v
    }
    prev := seed / float64(n)
    out[start+n-1] = prev
    k := 2.0 / float64(n+1)
    for i := start + n; i < len(values); i++ {
        prev = values[i]*k + prev*(1-k)
        out[i] = prev
    }
    return out
}

// RSI computes the Wilder relative strength index over period.
// It needs period+1 closes; a series without losses reports 100.
func RSI(closes []float64, period int) float64 {
    if period <= 0 || len(closes) < period+1 {
        return math.NaN()
    }
    var gain, loss float64
    for i := 1; i <= period; i++ {
        d := closes[i] - closes[i-1]
        if d > 0 {
            gain += d
        } else {
            loss -= d
        }
    }
    avgGain := gain / float64(period)
    avgLoss := loss / float64(period)
    p := float64(period)
    for i := period + 1; i < len(closes); i++ {
        d := closes[i] - closes[i-1]
        g, l := 0.0, 0.0
        if d > 0 {
            g = d
        } else {
            l = -d
        }
        avgGain = (avgGain*(p-1) + g) / p
        avgLoss = (avgLoss*(p-1) + l) / p
    }
    if avgLoss == 0 {
        return 100
    }
    rs := avgGain / avgLoss
    return 100 - 100/(1+rs)
}

// TrueRanges returns the true range of every bar after the first.
func TrueRanges(high, low, close []float64) []float64 {
    if len(close) < 2 {
        return nil
    }
    out := make([]float64, 0, len(close)-1)
    for i := 1; i < len(close); i++ {
        prev := close[i-1]
        tr := high[i] - low[i]
        tr = math.Max(tr, math.Abs(high[i]-prev))
        tr = math.Max(tr, math.Abs(low[i]-prev))
        out = append(out, tr)
    }
    return out
}

// ATR is the Wilder average true range seeded with the mean of the first period ranges.
func ATR(high, low, close []float64, period int) float64 {
    trs := TrueRanges(high, low, close)
    if period <= 0 || len(trs) < period {
        return math.NaN()
    }
    atr := 0.0
    for _, tr := range trs[:period] {
        atr += tr
    }
    atr /= float64(period)
    p := float64(period)
    for _, tr := range trs[period:] {
        atr = (atr*(p-1) + tr) / p
    }
    return atr
}

// PopulationStd is the population standard deviation of the last n values.
func PopulationStd(values []float64, n int) float64 {
    mean := SMA(values, n)
    if math.IsNaN(mean) {
        return mean
    }
    sum2 := 0.0
    for _, v := range values[len(values)-n:] {
        d := v - mean
        sum2 += d * d
    }
    return math.Sqrt(sum2 / float64(n))
}

// last returns the final element or NaN.
func last(values []float64) float64 {
    if len(values) == 0 {
        return math.NaN()
    }
    return values[len(values)-1]
}

// prev returns the element before the final one or NaN.
func prev(values []float64) float64 {
    if len(values) < 2 {
        return math.NaN()
    }
    return values[len(values)-2]
}

func opt(v float64) *float64 {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return nil
    }
    return &v
}

func round(v float64, places int) float64 {
    p := math.Pow(10, float64(places))
    return math.Round(v*p) / p
}
