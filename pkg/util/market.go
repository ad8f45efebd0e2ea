package util

import (
	"fmt"
	"time"
)

// TradingHours describes a weekday session in a local timezone.
type TradingHours struct {
	Location *time.Location
	Open     time.Duration // offset from local midnight
	Close    time.Duration
}

// NewTradingHours parses "HH:MM" open and close times in tz.
func NewTradingHours(tz, open, close string) (TradingHours, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return TradingHours{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	o, err := ClockOffset(open)
	if err != nil {
		return TradingHours{}, err
	}
	c, err := ClockOffset(close)
	if err != nil {
		return TradingHours{}, err
	}
	if c <= o {
		return TradingHours{}, fmt.Errorf("close %s must be after open %s", close, open)
	}
	return TradingHours{Location: loc, Open: o, Close: c}, nil
}

// ClockOffset parses "HH:MM" into a duration since midnight.
func ClockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", hhmm, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// IsTradingDay is true Monday through Friday. Exchange holidays are not modelled.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (h TradingHours) local(t time.Time) time.Time {
	if h.Location == nil {
		return t
	}
	return t.In(h.Location)
}

// At returns the wall-clock instant offset on t's local day.
func (h TradingHours) At(t time.Time, offset time.Duration) time.Time {
	l := h.local(t)
	midnight := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
	return midnight.Add(offset)
}

// IsOpen reports whether t falls inside [open, close] on a trading day.
func (h TradingHours) IsOpen(t time.Time) bool {
	l := h.local(t)
	if !IsTradingDay(l) {
		return false
	}
	return !l.Before(h.At(l, h.Open)) && !l.After(h.At(l, h.Close))
}

// NextOpen returns the next session open strictly after t.
func (h TradingHours) NextOpen(t time.Time) time.Time {
	l := h.local(t)
	for i := 0; i < 8; i++ {
		day := l.AddDate(0, 0, i)
		open := h.At(day, h.Open)
		if IsTradingDay(open) && open.After(l) {
			return open
		}
	}
	return h.At(l.AddDate(0, 0, 1), h.Open)
}

// NextDaily returns the next weekday instant at offset strictly after t.
func (h TradingHours) NextDaily(t time.Time, offset time.Duration) time.Time {
	l := h.local(t)
	for i := 0; i < 8; i++ {
		at := h.At(l.AddDate(0, 0, i), offset)
		if IsTradingDay(at) && at.After(l) {
			return at
		}
	}
	return h.At(l.AddDate(0, 0, 1), offset)
}

// NextWeekly returns the next instant at offset on weekday strictly after t.
func (h TradingHours) NextWeekly(t time.Time, weekday time.Weekday, offset time.Duration) time.Time {
	l := h.local(t)
	for i := 0; i < 8; i++ {
		at := h.At(l.AddDate(0, 0, i), offset)
		if at.Weekday() == weekday && at.After(l) {
			return at
		}
	}
	return h.At(l.AddDate(0, 0, 7), offset)
}

// DayKey formats t's local date as YYYY-MM-DD.
func (h TradingHours) DayKey(t time.Time) string {
	return h.local(t).Format("2006-01-02")
}

// WithinDays reports whether target lies between now and now+days, inclusive
// of today, by local calendar date.
func WithinDays(now, target time.Time, days int) bool {
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tt := target.In(now.Location())
	d := time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(d.Sub(n).Hours() / 24)
	return diff >= 0 && diff <= days
}
