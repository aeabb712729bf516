package repository

import (
	"context"
	"database/sql"
	"time"

	"innkeeper/internal/booking"
	"innkeeper/internal/model"
)

// RoomRepo provides access to rooms, room types and seasonal rates. True
// availability for a date range is always computed here against the
// reservations table; the rooms.status column only filters out rooms that
// housekeeping has taken out of service.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

// AvailableRoom is a candidate room joined with its rate adjusted for the
// requested check-in date.
type AvailableRoom struct {
	RoomID           uint64  `json:"room_id"`
	Number           string  `json:"number"`
	Floor            int     `json:"floor"`
	RoomTypeID       uint64  `json:"room_type_id"`
	RoomTypeName     string  `json:"room_type"`
	BaseRateCents    int64   `json:"base_rate_cents"`
	Multiplier       float64 `json:"seasonal_multiplier"`
	NightlyRateCents int64   `json:"nightly_rate_cents"`
}

// seasonSubquery resolves the seasonal multiplier in effect on a given date.
// When several configured ranges contain the date, the oldest row wins; when
// none does, the multiplier defaults to 1.
const seasonSubquery = `COALESCE((SELECT sr.multiplier FROM seasonal_rates sr
		WHERE sr.room_type_id = rt.id AND sr.start_date <= ? AND ? <= sr.end_date
		ORDER BY sr.id LIMIT 1), 1)`

// ListAvailable returns rooms that are in service and have no active
// reservation overlapping [checkIn, checkOut). Two stays on the same room may
// share a boundary day: an existing check-out equal to the new check-in is
// not a conflict.
func (r *RoomRepo) ListAvailable(ctx context.Context, checkIn, checkOut time.Time) ([]AvailableRoom, error) {
	in, out := fmtDate(checkIn), fmtDate(checkOut)
	q := `SELECT ro.id, ro.number, ro.floor, rt.id, rt.name, rt.base_rate_cents, ` + seasonSubquery + `
	      FROM rooms ro
	      JOIN room_types rt ON rt.id = ro.room_type_id
	      WHERE ro.status NOT IN (?, ?)
	        AND NOT EXISTS (
	            SELECT 1 FROM reservations x
	            WHERE x.room_id = ro.id
	              AND x.status IN (?, ?)
	              AND x.check_in < ? AND ? < x.check_out)
	      ORDER BY ro.number`
	rows, err := r.db.QueryContext(ctx, q,
		in, in,
		model.RoomMaintenance, model.RoomCleaning,
		model.ReservationConfirmed, model.ReservationCheckedIn,
		out, in)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]AvailableRoom, 0)
	for rows.Next() {
		var a AvailableRoom
		if err := rows.Scan(&a.RoomID, &a.Number, &a.Floor, &a.RoomTypeID, &a.RoomTypeName, &a.BaseRateCents, &a.Multiplier); err != nil {
			return nil, err
		}
		a.NightlyRateCents = booking.NightlyRateCents(a.BaseRateCents, a.Multiplier)
		result = append(result, a)
	}
	return result, rows.Err()
}

// GetByID fetches a room by id, returning ErrRoomNotFound when absent.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	return scanRoom(r.db.QueryRowContext(ctx,
		`SELECT id, room_type_id, number, floor, status FROM rooms WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *RoomRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
	return scanRoom(tx.QueryRowContext(ctx,
		`SELECT id, room_type_id, number, floor, status FROM rooms WHERE id = ?`, id))
}

func scanRoom(row *sql.Row) (model.Room, error) {
	var ro model.Room
	err := row.Scan(&ro.ID, &ro.RoomTypeID, &ro.Number, &ro.Floor, &ro.Status)
	if err == sql.ErrNoRows {
		return ro, ErrRoomNotFound
	}
	return ro, err
}

// RateForTx returns the base nightly rate and the seasonal multiplier in
// effect on the check-in date for a room type.
func (r *RoomRepo) RateForTx(ctx context.Context, tx *sql.Tx, roomTypeID uint64, checkIn time.Time) (int64, float64, error) {
	in := fmtDate(checkIn)
	q := `SELECT rt.base_rate_cents, ` + seasonSubquery + ` FROM room_types rt WHERE rt.id = ?`
	var base int64
	var mult float64
	err := tx.QueryRowContext(ctx, q, in, in, roomTypeID).Scan(&base, &mult)
	if err == sql.ErrNoRows {
		return 0, 0, ErrRoomNotFound
	}
	return base, mult, err
}

// UpdateStatusTx flips a room's housekeeping status inside a transaction.
// The lifecycle flows use it to mark rooms OCCUPIED on booking and AVAILABLE
// again when a cancellation frees them; skipping the reset would leave the
// room stuck OCCUPIED forever. The write is idempotent: rewriting the current
// status must succeed, so not-found is established by a follow-up probe
// rather than from the affected-rows count (MySQL reports changed rows and
// answers 0 for a same-value UPDATE).
func (r *RoomRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE rooms SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrRoomNotFound
	}
	return err
}

// UpdateStatus flips a room's housekeeping status outside any transaction
// (staff maintenance/cleaning updates). Same affected-rows caveat as
// UpdateStatusTx.
func (r *RoomRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrRoomNotFound
	}
	return err
}
