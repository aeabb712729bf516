// Package model contains plain structs mirroring the database tables. The
// repository layer scans rows into these types; handlers define their own
// response shapes with JSON tags where needed.
package model

import "time"

// Room statuses. The status column is a coarse housekeeping indicator
// (occupied now, being cleaned, under maintenance). It is never consulted to
// decide whether a room can be booked for a date range; availability is
// always computed against the reservations table.
const (
	RoomAvailable   = "AVAILABLE"
	RoomOccupied    = "OCCUPIED"
	RoomMaintenance = "MAINTENANCE"
	RoomCleaning    = "CLEANING"
)

// RoomType is immutable reference data describing a class of rooms and its
// base nightly rate in cents.
type RoomType struct {
	ID            uint64 // room_types.id
	Name          string // room_types.name
	BaseRateCents int64  // room_types.base_rate_cents
}

// SeasonalRate is a date-ranged multiplier applied to a room type's base
// nightly rate. Ranges are inclusive on both ends. Overlapping ranges for
// the same room type are not rejected by the store; the row with the lowest
// id wins during pricing.
type SeasonalRate struct {
	ID         uint64    // seasonal_rates.id
	RoomTypeID uint64    // seasonal_rates.room_type_id
	StartDate  time.Time // seasonal_rates.start_date
	EndDate    time.Time // seasonal_rates.end_date
	Multiplier float64   // seasonal_rates.multiplier
}

// Room is a physical room belonging to a room type.
type Room struct {
	ID         uint64 // rooms.id
	RoomTypeID uint64 // rooms.room_type_id
	Number     string // rooms.number
	Floor      int    // rooms.floor
	Status     string // rooms.status
}

// Service is a catalogue entry (laundry, minibar, ...) that can be charged
// against a reservation.
type Service struct {
	ID         uint64 // services.id
	Name       string // services.name
	PriceCents int64  // services.price_cents
}
