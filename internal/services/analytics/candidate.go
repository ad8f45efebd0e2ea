package analytics

import (
    "fmt"
    "math"
    "sort"

    "Aktiemotor/internal/domain/models"
    "Aktiemotor/internal/services/features"
)

const (
    minCandidateTurnover = 30_000_000
    minCandidateHistory  = 50

    // WatchlistRotationMargin is the lead a scanned candidate needs over a
    // weak watchlist entry before it replaces it.
    WatchlistRotationMargin = 25
    scanTopNew              = 5
    scanWeakest             = 2

    // DiscoveryWatchlistSize is how many tickers discovery leaves watched.
    DiscoveryWatchlistSize = 15
    discoveryStability     = 5.0
)

// ScoreCandidate rates a ticker's suitability for the watchlist from its
// liquidity, history length, volatility, volume and trend. Tickers failing
// the turnover or history filter are returned unqualified with score 0.
func ScoreCandidate(ticker string, bars []models.Bar) models.Candidate {
    c := models.Candidate{Ticker: ticker}
    turnover := features.AverageTurnover(bars, 0)
    c.Turnover = turnover
    if turnover < minCandidateTurnover {
        c.Reasons = []string{fmt.Sprintf("Filtered: turnover %.1fM SEK/day (min %dM)", turnover/1e6, minCandidateTurnover/1_000_000)}
        return c
    }
    if len(bars) < minCandidateHistory {
        c.Reasons = []string{fmt.Sprintf("Filtered: only %d trading days (min %d)", len(bars), minCandidateHistory)}
        return c
    }
    s := features.ComputeSnapshot(ticker, bars)
    if s == nil {
        c.Reasons = []string{"Filtered: no indicators"}
        return c
    }
    c.Snapshot = s
    c.Qualified = true

    score := 0
    switch {
    case turnover >= 200_000_000:
        score += 20
        c.Reasons = append(c.Reasons, fmt.Sprintf("Very high liquidity %.0fM SEK/day", turnover/1e6))
    case turnover >= 80_000_000:
        score += 10
        c.Reasons = append(c.Reasons, fmt.Sprintf("Good liquidity %.0fM SEK/day", turnover/1e6))
    }

    if atrPct := s.ATRPct(); atrPct != nil {
        c.ATRPct = atrPct
        pct := *atrPct * 100
        switch {
        case pct >= 2 && pct <= 8:
            score += 25
            c.Reasons = append(c.Reasons, fmt.Sprintf("Tradable volatility %.1f%%/day", pct))
        case pct > 8:
            score += 10
            c.Reasons = append(c.Reasons, fmt.Sprintf("High volatility %.1f%%/day", pct))
        default:
            c.Reasons = append(c.Reasons, fmt.Sprintf("Low volatility %.1f%%/day", pct))
        }
    }

    switch {
    case s.VolumeRatio >= 1.5:
        score += 20
        c.Reasons = append(c.Reasons, fmt.Sprintf("High volume %.1fx average", s.VolumeRatio))
    case s.VolumeRatio >= 1.0:
        score += 10
        c.Reasons = append(c.Reasons, fmt.Sprintf("Normal volume %.1fx average", s.VolumeRatio))
    }

    if s.MA50 != nil && s.CurrentPrice > *s.MA50 {
        score += 20
        c.Reasons = append(c.Reasons, "Price above MA50")
    }
    if s.MA200 != nil && s.CurrentPrice > *s.MA200 {
        score += 15
        c.Reasons = append(c.Reasons, "Price above MA200")
    }
    if s.RSI != nil && *s.RSI >= 30 && *s.RSI <= 70 {
        score += 10
        c.Reasons = append(c.Reasons, fmt.Sprintf("RSI %.0f in tradable range", *s.RSI))
    }

    c.Score = score
    return c
}

// PlanWatchlistRotation pairs the best new qualified candidates with the
// weakest qualified watchlist entries. A weak entry is replaced when the
// candidate leads by more than WatchlistRotationMargin; tickers in protected
// (open positions) are never removed and each entry is replaced at most once.
func PlanWatchlistRotation(scored []models.Candidate, watchlist map[string]bool, protected map[string]bool) []models.WatchlistChange {
    var fresh, current []models.Candidate
    for _, c := range scored {
        if !c.Qualified || c.Score <= 0 {
            continue
        }
        if watchlist[c.Ticker] {
            current = append(current, c)
        } else {
            fresh = append(fresh, c)
        }
    }
    sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Score > fresh[j].Score })
    sort.SliceStable(current, func(i, j int) bool { return current[i].Score < current[j].Score })
    if len(fresh) > scanTopNew {
        fresh = fresh[:scanTopNew]
    }
    if len(current) > scanWeakest {
        current = current[:scanWeakest]
    }

    replaced := make(map[string]bool)
    var changes []models.WatchlistChange
    for _, cand := range fresh {
        for _, weak := range current {
            if replaced[weak.Ticker] || protected[weak.Ticker] {
                continue
            }
            if cand.Score > weak.Score+WatchlistRotationMargin {
                replaced[weak.Ticker] = true
                changes = append(changes, models.WatchlistChange{
                    Added:        cand.Ticker,
                    AddedScore:   cand.Score,
                    Removed:      weak.Ticker,
                    RemovedScore: weak.Score,
                })
                break
            }
        }
    }
    return changes
}

// DiscoveryScore blends candidate quality (40%) with buy readiness (60%).
// A ticker already watched gets a small bonus so the list does not churn.
func DiscoveryScore(candidate, buyPre int, watched bool) float64 {
    v := float64(candidate)*0.4 + float64(buyPre)*0.6
    if watched {
        v += discoveryStability
    }
    return math.Round(v*10) / 10
}

// SelectDiscovery keeps every held ticker and fills the remaining places up
// to size with the best of the rest, highest combined score first.
func SelectDiscovery(ranked []models.DiscoveryCandidate, size int) []models.DiscoveryCandidate {
    sorted := append([]models.DiscoveryCandidate(nil), ranked...)
    sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Combined > sorted[j].Combined })

    var held, rest []models.DiscoveryCandidate
    for _, c := range sorted {
        if c.Held {
            held = append(held, c)
        } else {
            rest = append(rest, c)
        }
    }
    free := size - len(held)
    if free < 0 {
        free = 0
    }
    if len(rest) > free {
        rest = rest[:free]
    }
    out := append(held, rest...)
    sort.SliceStable(out, func(i, j int) bool { return out[i].Combined > out[j].Combined })
    return out
}
