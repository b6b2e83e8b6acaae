package engine

import (
	"math"
	"time"
)

// DefaultCycleDays is the accounting window length when none is
// configured: one week, reset every Monday.
const DefaultCycleDays = 7

// shouldReset reports whether now falls in a later cycle window than
// cycleStart. A zero cycleStart means no cycle has ever started, which
// is never a reset; the caller initializes the window instead.
func shouldReset(now, cycleStart time.Time, cycleDays int) bool {
	if cycleStart.IsZero() {
		return false
	}
	return windowStart(now, cycleDays).After(windowStart(cycleStart, cycleDays))
}

// windowStart returns the aligned start of the cycle window containing
// t. Windows are anchored to a fixed Monday so that weekly cycles always
// begin Monday 00:00 local time, and boundaries stay put across restarts
// rather than drifting with whenever a run happened to execute.
func windowStart(t time.Time, cycleDays int) time.Time {
	if cycleDays <= 0 {
		cycleDays = DefaultCycleDays
	}
	day := startOfDay(t)
	// 2024-01-01 was a Monday.
	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, t.Location())
	// Rounding absorbs DST transitions, which make days 23 or 25 hours.
	days := int(math.Round(day.Sub(anchor).Hours() / 24))
	days -= mod(days, cycleDays)
	return anchor.AddDate(0, 0, days)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// mod is the floored modulo, correct for dates before the anchor.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
