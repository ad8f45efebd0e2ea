package repository

import "time"

// Range is a lookback window for daily history, in Yahoo notation.
type Range string

const (
	Range6M Range = "6mo"
	Range1Y Range = "1y"
	Range2Y Range = "2y"
)

// IsValidRange reports whether r is supported.
func IsValidRange(r Range) bool {
	switch r {
	case Range6M, Range1Y, Range2Y:
		return true
	default:
		return false
	}
}

// DefaultRange covers MA200 with room for the regime slope check.
func DefaultRange() Range { return Range1Y }

// NormalizeRange maps a raw value to a supported range or the default.
func NormalizeRange(s string) Range {
	if r := Range(s); IsValidRange(r) {
		return r
	}
	return DefaultRange()
}

// Duration is the calendar span the range covers.
func (r Range) Duration() time.Duration {
	day := 24 * time.Hour
	switch r {
	case Range6M:
		return 183 * day
	case Range2Y:
		return 730 * day
	default:
		return 365 * day
	}
}
