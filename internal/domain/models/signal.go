package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SignalKind tells why a recommendation was emitted.
type SignalKind string

const (
	KindRoutine  SignalKind = "routine"
	KindStopTake SignalKind = "stop_take"
	KindRotation SignalKind = "rotation"
)

type SignalStatus string

const (
	StatusPending    SignalStatus = "pending"
	StatusConfirmed  SignalStatus = "confirmed"
	StatusRejected   SignalStatus = "rejected"
	StatusSuperseded SignalStatus = "superseded"
)

// Recommendation is a BUY or SELL alert awaiting human confirmation.
// The engine never executes it on its own.
type Recommendation struct {
	ID          string             `json:"id"`
	Ticker      string             `json:"ticker"`
	Side        Side               `json:"side"`
	Kind        SignalKind         `json:"kind"`
	Status      SignalStatus       `json:"status"`
	Score       int                `json:"score"`
	Threshold   int                `json:"threshold"`
	Confidence  int                `json:"confidence"`
	Reasons     []string           `json:"reasons"`
	Description string             `json:"description,omitempty"`
	Price       float64            `json:"price"`
	Quantity    int                `json:"quantity,omitempty"`
	Value       float64            `json:"value,omitempty"`
	StopLoss    float64            `json:"stop_loss,omitempty"`
	TakeProfit  float64            `json:"take_profit,omitempty"`
	Regime      MarketRegime       `json:"regime"`
	RotationOf  string             `json:"rotation_of,omitempty"`
	Snapshot    *IndicatorSnapshot `json:"snapshot,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty"`
}

// IsPending reports whether the recommendation still awaits a decision.
func (r *Recommendation) IsPending() bool { return r.Status == StatusPending }

// ConfidenceFromScore caps a raw score into a 0..99 confidence.
func ConfidenceFromScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 99:
		return 99
	default:
		return score
	}
}
