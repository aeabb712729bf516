package repository

import (
	"time"

	"innkeeper/internal/booking"
)

// fmtDate renders a stay date the way it is stored and compared in SQL.
// Binding dates as plain "2006-01-02" strings keeps half-open range
// comparisons correct on both MySQL DATE columns and SQLite text storage.
func fmtDate(t time.Time) string {
	return booking.Day(t).Format(booking.DateLayout)
}
