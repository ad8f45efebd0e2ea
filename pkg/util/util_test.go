package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockholm(t *testing.T) TradingHours {
	t.Helper()
	h, err := NewTradingHours("Europe/Stockholm", "09:00", "17:30")
	require.NoError(t, err)
	return h
}

func TestTradingHoursIsOpen(t *testing.T) {
	h := stockholm(t)
	at := func(day, hh, mm int) time.Time {
		return time.Date(2026, 3, day, hh, mm, 0, 0, h.Location)
	}
	// 2026-03-02 is a Monday.
	assert.False(t, h.IsOpen(at(2, 8, 59)))
	assert.True(t, h.IsOpen(at(2, 9, 0)))
	assert.True(t, h.IsOpen(at(2, 17, 30)))
	assert.False(t, h.IsOpen(at(2, 17, 31)))
	assert.False(t, h.IsOpen(at(7, 12, 0)), "saturday")
	assert.True(t, h.IsOpen(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)), "11:00 local")
}

func TestTradingHoursNext(t *testing.T) {
	h := stockholm(t)
	fri := time.Date(2026, 3, 6, 18, 0, 0, 0, h.Location)

	next := h.NextOpen(fri)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())

	scan, _ := ClockOffset("17:45")
	assert.Equal(t, time.Date(2026, 3, 9, 17, 45, 0, 0, h.Location), h.NextDaily(fri, scan))

	weekly, _ := ClockOffset("18:00")
	got := h.NextWeekly(fri, time.Friday, weekly)
	assert.Equal(t, time.Date(2026, 3, 13, 18, 0, 0, 0, h.Location), got)
	assert.Equal(t, "2026-03-06", h.DayKey(fri))
}

func TestNewTradingHoursRejectsBadInput(t *testing.T) {
	_, err := NewTradingHours("Mars/Olympus", "09:00", "17:30")
	assert.Error(t, err)
	_, err = NewTradingHours("UTC", "17:30", "09:00")
	assert.Error(t, err)
	_, err = NewTradingHours("UTC", "9am", "17:30")
	assert.Error(t, err)
}

func TestWithinDays(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	assert.True(t, WithinDays(now, now, 2))
	assert.True(t, WithinDays(now, now.Add(48*time.Hour), 2))
	assert.False(t, WithinDays(now, now.Add(72*time.Hour), 2))
	assert.False(t, WithinDays(now, now.Add(-24*time.Hour), 2))
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2026-03-02T10:00:00Z", "2026-03-02 10:00:00", "1772445600"} {
		got, ok := ParseTime(s)
		require.True(t, ok, s)
		assert.Equal(t, 2026, got.Year())
	}
	d, ok := ParseTime("2026-03-02")
	require.True(t, ok)
	assert.Equal(t, 2, d.Day())
	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]float64{"1 234,50": 1234.5, "12.5": 12.5, "1,000.25": 1000.25, "500000": 500000} {
		got, ok := ParseNumber(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, ok := ParseNumber("n/a")
	assert.False(t, ok)
	assert.Equal(t, 7, ParseIntDefault(" 7 ", 1))
	assert.Equal(t, 1, ParseIntDefault("x", 1))
}

func TestYahooSymbol(t *testing.T) {
	assert.Equal(t, "EMBRAC-B.ST", YahooSymbol("embrac b", ".ST"))
	assert.Equal(t, "EVO.ST", YahooSymbol("EVO", ".ST"))
	assert.Equal(t, "EVO.ST", YahooSymbol("EVO.ST", ".ST"))
	assert.Equal(t, "^OMX", YahooSymbol("^OMX", ".ST"))
	assert.Equal(t, "SSAB B", NormalizeTicker("  ssab   b "))
}
