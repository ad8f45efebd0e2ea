package features

import (
    "Aktiemotor/internal/domain/models"
)

// DefaultRSWindow is the trailing window for relative strength.
const DefaultRSWindow = 20

// RelativeStrength compares the trailing n-bar return of stock against index
// as (1+stock)/(1+index). Values above 1 mean outperformance. It returns nil
// when either series is shorter than n or a ratio is undefined.
func RelativeStrength(stock, index []models.Bar, n int) *float64 {
    if n < 2 || len(stock) < n || len(index) < n {
        return nil
    }
    sr, ok := trailingReturn(stock, n)
    if !ok {
        return nil
    }
    ir, ok := trailingReturn(index, n)
    if !ok {
        return nil
    }
    denom := 1 + ir
    if denom == 0 {
        return nil
    }
    return models.Float(round((1+sr)/denom, 4))
}

func trailingReturn(bars []models.Bar, n int) (float64, bool) {
    base := bars[len(bars)-n].Close
    if base <= 0 {
        return 0, false
    }
    return bars[len(bars)-1].Close/base - 1, true
}

// AverageTurnover is the mean of close*volume over the last window bars,
// or over all bars when window is not positive. Empty input gives 0.
func AverageTurnover(bars []models.Bar, window int) float64 {
    if len(bars) == 0 {
        return 0
    }
    if window <= 0 || window > len(bars) {
        window = len(bars)
    }
    sum := 0.0
    for _, b := range bars[len(bars)-window:] {
        sum += b.Close * b.Volume
    }
    return sum / float64(window)
}
