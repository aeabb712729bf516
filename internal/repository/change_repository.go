package repository

import (
	"context"
	"database/sql"
	"time"

	"innkeeper/internal/model"
)

// ChangeRepo provides access to reservation_changes. The design intent is a
// single pending request per reservation, but the store does not enforce it:
// approval and rejection always target the most recent pending row by id, and
// the single-pending rule holds by convention only.
type ChangeRepo struct {
	db *sql.DB
}

// NewChangeRepo returns a ChangeRepo bound to the given database.
func NewChangeRepo(db *sql.DB) *ChangeRepo { return &ChangeRepo{db: db} }

// Create inserts a pending change request. For DATE_CHANGE the new dates must
// be set; for CANCELLATION only the old dates are recorded.
func (r *ChangeRepo) Create(ctx context.Context, ch *model.ReservationChange) error {
	var newIn, newOut any
	if ch.NewCheckIn != nil {
		newIn = fmtDate(*ch.NewCheckIn)
	}
	if ch.NewCheckOut != nil {
		newOut = fmtDate(*ch.NewCheckOut)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reservation_changes
		 (reservation_id, change_type, old_check_in, old_check_out, new_check_in, new_check_out, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ch.ReservationID, ch.ChangeType, fmtDate(ch.OldCheckIn), fmtDate(ch.OldCheckOut),
		newIn, newOut, model.ChangePending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ch.ID = uint64(id)
	ch.Status = model.ChangePending
	return nil
}

const changeColumns = `id, reservation_id, staff_id, change_type, old_check_in, old_check_out,
	new_check_in, new_check_out, status, created_at`

func scanChange(row *sql.Row) (model.ReservationChange, error) {
	var ch model.ReservationChange
	var staffID sql.NullInt64
	var newIn, newOut sql.NullTime
	err := row.Scan(&ch.ID, &ch.ReservationID, &staffID, &ch.ChangeType,
		&ch.OldCheckIn, &ch.OldCheckOut, &newIn, &newOut, &ch.Status, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return ch, ErrNoPendingRequest
	}
	if err != nil {
		return ch, err
	}
	if staffID.Valid {
		sid := uint64(staffID.Int64)
		ch.StaffID = &sid
	}
	if newIn.Valid {
		t := newIn.Time
		ch.NewCheckIn = &t
	}
	if newOut.Valid {
		t := newOut.Time
		ch.NewCheckOut = &t
	}
	return ch, nil
}

// LatestPendingTx fetches the most recent pending change for a reservation
// inside an existing transaction. Should duplicate pending rows ever exist,
// the highest id wins and older ones are ignored.
func (r *ChangeRepo) LatestPendingTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (model.ReservationChange, error) {
	return scanChange(tx.QueryRowContext(ctx,
		`SELECT `+changeColumns+` FROM reservation_changes
		 WHERE reservation_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		reservationID, model.ChangePending))
}

// LatestPending is LatestPendingTx outside a transaction (used to report an
// existing pending request on submission).
func (r *ChangeRepo) LatestPending(ctx context.Context, reservationID uint64) (model.ReservationChange, error) {
	return scanChange(r.db.QueryRowContext(ctx,
		`SELECT `+changeColumns+` FROM reservation_changes
		 WHERE reservation_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		reservationID, model.ChangePending))
}

// DeleteTx removes a resolved change row. Approval applies the change first;
// rejection just deletes. Either way no history of the request survives.
func (r *ChangeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reservation_changes WHERE id = ?`, id)
	return err
}

// DeleteByReservationTx removes every change row of a reservation. The
// cancellation flow uses it so a deleted reservation leaves no dangling
// requests behind.
func (r *ChangeRepo) DeleteByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reservation_changes WHERE reservation_id = ?`, reservationID)
	return err
}

// PendingChange is a pending request joined with reservation context for the
// staff queue.
type PendingChange struct {
	ID            uint64  `json:"id"`
	ReservationID uint64  `json:"reservation_id"`
	GuestName     string  `json:"guest_name"`
	RoomNumber    string  `json:"room_number"`
	ChangeType    string  `json:"change_type"`
	OldCheckIn    string  `json:"old_check_in"`
	OldCheckOut   string  `json:"old_check_out"`
	NewCheckIn    *string `json:"new_check_in,omitempty"`
	NewCheckOut   *string `json:"new_check_out,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// ListPending returns all pending change requests, oldest first, for the
// staff approval queue.
func (r *ChangeRepo) ListPending(ctx context.Context) ([]PendingChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.reservation_id, g.name, ro.number, c.change_type,
		        c.old_check_in, c.old_check_out, c.new_check_in, c.new_check_out, c.created_at
		 FROM reservation_changes c
		 JOIN reservations r ON r.id = c.reservation_id
		 JOIN guests g ON g.id = r.guest_id
		 JOIN rooms ro ON ro.id = r.room_id
		 WHERE c.status = ?
		 ORDER BY c.id`, model.ChangePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PendingChange, 0)
	for rows.Next() {
		var p PendingChange
		var oldIn, oldOut time.Time
		var newIn, newOut sql.NullTime
		var createdAt time.Time
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.GuestName, &p.RoomNumber, &p.ChangeType,
			&oldIn, &oldOut, &newIn, &newOut, &createdAt); err != nil {
			return nil, err
		}
		p.OldCheckIn = fmtDate(oldIn)
		p.OldCheckOut = fmtDate(oldOut)
		if newIn.Valid {
			s := fmtDate(newIn.Time)
			p.NewCheckIn = &s
		}
		if newOut.Valid {
			s := fmtDate(newOut.Time)
			p.NewCheckOut = &s
		}
		p.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		out = append(out, p)
	}
	return out, rows.Err()
}
