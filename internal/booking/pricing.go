// Package booking holds the pure pricing and stay-window rules. Everything
// here is a function of its arguments (including "now" where relevant) so the
// rules can be tested without a database or wall clock.
package booking

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidStay is returned when a stay window is malformed, i.e. the
// check-out date is not strictly after the check-in date.
var ErrInvalidStay = errors.New("check-out must be after check-in")

// DateLayout is the wire and storage format for stay dates. Dates are always
// bound to SQL as strings in this layout so half-open range comparisons
// behave identically on MySQL and SQLite.
const DateLayout = "2006-01-02"

// Day normalizes a timestamp to midnight UTC. Stay arithmetic operates on
// calendar dates, never on wall-clock time.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of billable nights for a stay, computed as the
// calendar-day difference rounded up. A valid stay has at least one night.
func Nights(checkIn, checkOut time.Time) (int, error) {
	in, out := Day(checkIn), Day(checkOut)
	if !out.After(in) {
		return 0, ErrInvalidStay
	}
	d := out.Sub(in)
	return int(math.Ceil(d.Hours() / 24)), nil
}

// NightlyRateCents applies a seasonal multiplier to a base nightly rate.
// The multiplier is the one in effect on the check-in date; the whole stay is
// priced at the check-in day's season even when it crosses a season boundary.
// That is intentional, not a proration bug, and callers must not assume
// otherwise.
func NightlyRateCents(baseCents int64, multiplier float64) int64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return int64(math.Round(float64(baseCents) * multiplier))
}

// TotalCents prices a full stay.
func TotalCents(baseCents int64, multiplier float64, checkIn, checkOut time.Time) (int64, error) {
	nights, err := Nights(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	return NightlyRateCents(baseCents, multiplier) * int64(nights), nil
}
