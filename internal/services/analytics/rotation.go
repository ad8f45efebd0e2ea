package analytics

import (
    "fmt"
    "math"
)

// DefaultRotationMargin is the hysteresis a candidate must clear.
const DefaultRotationMargin = 15.0

// HoldingScore is a held ticker's opportunity score from its own snapshot.
// A nil Score marks a holding that could not be scored this cycle.
type HoldingScore struct {
    Ticker string
    Score  *float64
}

// RotationDecision is the outcome of comparing a candidate with the book.
type RotationDecision struct {
    Rotate         bool    `json:"rotate"`
    Weakest        string  `json:"weakest,omitempty"`
    WeakestScore   float64 `json:"weakest_score"`
    CandidateScore float64 `json:"candidate_score"`
    Margin         float64 `json:"margin"`
    Reason         string  `json:"reason"`
}

// SlotAvailable reports whether a new position can be proposed outright.
func SlotAvailable(used, max int) bool { return used < max }

// ShouldRotate is true only when candidate beats weakest by more than margin.
func ShouldRotate(candidate, weakest, margin float64) bool {
    return candidate > weakest+margin
}

// DecideRotation picks the weakest scorable holding and decides whether the
// candidate displaces it. Unscorable holdings are ignored; with none
// scorable there is no rotation.
func DecideRotation(candidate float64, holdings []HoldingScore, margin float64) RotationDecision {
    d := RotationDecision{CandidateScore: candidate, Margin: margin, WeakestScore: math.NaN()}
    for _, h := range holdings {
        if h.Score == nil {
            continue
        }
        if d.Weakest == "" || *h.Score < d.WeakestScore {
            d.Weakest = h.Ticker
            d.WeakestScore = *h.Score
        }
    }
    if d.Weakest == "" {
        d.WeakestScore = 0
        d.Reason = "no scorable holdings"
        return d
    }
    d.Rotate = ShouldRotate(candidate, d.WeakestScore, margin)
    if d.Rotate {
        d.Reason = fmt.Sprintf("candidate %.0f beats %s %.0f by more than %.0f", candidate, d.Weakest, d.WeakestScore, margin)
    } else {
        d.Reason = fmt.Sprintf("candidate %.0f does not beat %s %.0f + %.0f", candidate, d.Weakest, d.WeakestScore, margin)
    }
    return d
}
