package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseTime accepts RFC3339 (with or without zone), plain dates,
// "YYYY-MM-DD HH:MM:SS" and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseIntDefault parses s or returns def.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}

// ParseNumber reads numbers written with Swedish separators ("1 234,50").
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// NormalizeTicker upper-cases and collapses whitespace: " embrac  b" -> "EMBRAC B".
func NormalizeTicker(t string) string {
	return strings.Join(strings.Fields(strings.ToUpper(t)), " ")
}

// YahooSymbol maps a Stockholm ticker to Yahoo's notation. Index symbols
// starting with '^' pass through.
func YahooSymbol(ticker, suffix string) string {
	t := NormalizeTicker(ticker)
	if strings.HasPrefix(t, "^") || (suffix != "" && strings.HasSuffix(t, suffix)) {
		return t
	}
	return strings.ReplaceAll(t, " ", "-") + suffix
}
