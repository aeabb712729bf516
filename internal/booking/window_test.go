package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	t.Run("Contained", func(t *testing.T) {
		assert.True(t, Overlaps(
			date("2026-05-01"), date("2026-05-10"),
			date("2026-05-03"), date("2026-05-05")))
	})

	t.Run("PartialOverlap", func(t *testing.T) {
		assert.True(t, Overlaps(
			date("2026-05-01"), date("2026-05-05"),
			date("2026-05-04"), date("2026-05-08")))
	})

	t.Run("Disjoint", func(t *testing.T) {
		assert.False(t, Overlaps(
			date("2026-05-01"), date("2026-05-05"),
			date("2026-05-10"), date("2026-05-12")))
	})

	t.Run("BoundaryDayIsNotConflict", func(t *testing.T) {
		// One guest checks out the morning another checks in.
		assert.False(t, Overlaps(
			date("2026-05-01"), date("2026-05-05"),
			date("2026-05-05"), date("2026-05-08")))
		assert.False(t, Overlaps(
			date("2026-05-05"), date("2026-05-08"),
			date("2026-05-01"), date("2026-05-05")))
	})
}

func TestInSeason(t *testing.T) {
	start, end := date("2026-06-01"), date("2026-08-31")

	assert.True(t, InSeason(date("2026-07-15"), start, end))
	// Both ends inclusive.
	assert.True(t, InSeason(start, start, end))
	assert.True(t, InSeason(end, start, end))

	assert.False(t, InSeason(date("2026-05-31"), start, end))
	assert.False(t, InSeason(date("2026-09-01"), start, end))
}

func TestStage(t *testing.T) {
	checkIn, checkOut := date("2026-05-10"), date("2026-05-15")

	assert.Equal(t, StageUpcoming, Stage(date("2026-05-09"), checkIn, checkOut))
	assert.Equal(t, StageActive, Stage(date("2026-05-10"), checkIn, checkOut))
	assert.Equal(t, StageActive, Stage(date("2026-05-14"), checkIn, checkOut))
	// Check-out day itself is already past the stay, same half-open rule as
	// the overlap check.
	assert.Equal(t, StageCompleted, Stage(date("2026-05-15"), checkIn, checkOut))
	assert.Equal(t, StageCompleted, Stage(date("2026-06-01"), checkIn, checkOut))
}
