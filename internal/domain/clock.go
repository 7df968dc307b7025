package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic
// window boundaries.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for window computation. Pass nil to reset
// to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Today returns the current UTC calendar day at midnight.
func Today() time.Time {
	return clock.Now().UTC().Truncate(24 * time.Hour)
}

// WindowStart returns the first day of a trailing window ending today, so
// the window covers [today-windowDays, today] inclusive.
func WindowStart(windowDays int) time.Time {
	return Today().AddDate(0, 0, -windowDays)
}
