package booking

import "time"

// Overlaps reports whether the half-open stay windows [aIn, aOut) and
// [bIn, bOut) intersect. Check-out day and check-in day may coincide without
// conflict: the departing guest leaves in the morning, the arriving guest
// takes the room that night.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return Day(aIn).Before(Day(bOut)) && Day(bIn).Before(Day(aOut))
}

// InSeason reports whether a date falls inside an inclusive seasonal range.
func InSeason(date, start, end time.Time) bool {
	d := Day(date)
	return !d.Before(Day(start)) && !d.After(Day(end))
}

// Stay stage labels derived for display. They are computed from the stay
// window and an explicit "now"; the persisted status column keeps only the
// occupancy states (CONFIRMED, CHECKED_IN).
const (
	StageUpcoming  = "UPCOMING"
	StageActive    = "ACTIVE"
	StageCompleted = "COMPLETED"
)

// Stage labels a stay relative to now. A stay is ACTIVE from its check-in
// date (inclusive) to its check-out date (exclusive), mirroring the half-open
// overlap rule.
func Stage(now, checkIn, checkOut time.Time) string {
	d := Day(now)
	switch {
	case d.Before(Day(checkIn)):
		return StageUpcoming
	case d.Before(Day(checkOut)):
		return StageActive
	default:
		return StageCompleted
	}
}
