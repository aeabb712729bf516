package repository

import (
	"context"
	"database/sql"
	"time"

	"innkeeper/internal/model"
)

// ReservationRepo provides CRUD operations for reservations. Stay dates are
// DATE columns handled as half-open [check_in, check_out) windows. All
// multi-step mutations (create-and-occupy, claim, cancel-and-free) are
// orchestrated by callers inside a single transaction through the *Tx
// variants; a partial failure rolls back and leaves prior state untouched.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// OverlapExistsTx reports whether an active reservation on the room overlaps
// the half-open window [checkIn, checkOut). Only CONFIRMED and CHECKED_IN
// rows block; cancelled rows are already gone.
func (r *ReservationRepo) OverlapExistsTx(ctx context.Context, tx *sql.Tx, roomID uint64, checkIn, checkOut time.Time) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM reservations
		 WHERE room_id = ? AND status IN (?, ?) AND check_in < ? AND ? < check_out LIMIT 1`,
		roomID, model.ReservationConfirmed, model.ReservationCheckedIn,
		fmtDate(checkOut), fmtDate(checkIn)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a reservation and populates the generated id on rec.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations
		 (guest_id, room_id, staff_id, check_in, check_out, status, total_amount_cents,
		  payment_status, payment_method, confirmation_code, is_claimed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GuestID, rec.RoomID, rec.StaffID, fmtDate(rec.CheckIn), fmtDate(rec.CheckOut),
		rec.Status, rec.TotalAmountCents, rec.PaymentStatus, rec.PaymentMethod,
		rec.ConfirmationCode, rec.IsClaimed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

const reservationColumns = `id, guest_id, room_id, staff_id, check_in, check_out, status,
	total_amount_cents, payment_status, payment_method, confirmation_code, is_claimed,
	created_at, updated_at`

func scanReservation(row *sql.Row) (model.Reservation, error) {
	var res model.Reservation
	var staffID sql.NullInt64
	err := row.Scan(&res.ID, &res.GuestID, &res.RoomID, &staffID, &res.CheckIn, &res.CheckOut,
		&res.Status, &res.TotalAmountCents, &res.PaymentStatus, &res.PaymentMethod,
		&res.ConfirmationCode, &res.IsClaimed, &res.CreatedAt, &res.UpdatedAt)
	if err == sql.ErrNoRows {
		return res, ErrReservationNotFound
	}
	if err != nil {
		return res, err
	}
	if staffID.Valid {
		sid := uint64(staffID.Int64)
		res.StaffID = &sid
	}
	return res, nil
}

// GetRecord fetches the raw reservation row by id.
func (r *ReservationRepo) GetRecord(ctx context.Context, id uint64) (model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
}

// GetRecordTx is GetRecord inside an existing transaction.
func (r *ReservationRepo) GetRecordTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
}

// ClaimTarget pairs a reservation found by confirmation code with the
// identity state of its current guest, which the claim flow needs to decide
// between idempotent success, reassignment and AlreadyLinked.
type ClaimTarget struct {
	Reservation     model.Reservation
	GuestEmail      string
	GuestRegistered bool
}

const claimTargetQuery = `SELECT r.id, r.guest_id, r.room_id, r.staff_id, r.check_in, r.check_out, r.status,
        r.total_amount_cents, r.payment_status, r.payment_method, r.confirmation_code,
        r.is_claimed, r.created_at, r.updated_at, g.email, g.is_account_created
 FROM reservations r
 JOIN guests g ON g.id = r.guest_id
 WHERE r.confirmation_code = ?`

// GetByCodeTx looks up a reservation by confirmation code inside an existing
// transaction, joined with its guest's email and registration flag.
func (r *ReservationRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (ClaimTarget, error) {
	return scanClaimTarget(tx.QueryRowContext(ctx, claimTargetQuery, code))
}

// GetByCode is the non-transactional variant used by the public lookup.
func (r *ReservationRepo) GetByCode(ctx context.Context, code string) (ClaimTarget, error) {
	return scanClaimTarget(r.db.QueryRowContext(ctx, claimTargetQuery, code))
}

func scanClaimTarget(row *sql.Row) (ClaimTarget, error) {
	var t ClaimTarget
	var staffID sql.NullInt64
	err := row.Scan(
		&t.Reservation.ID, &t.Reservation.GuestID, &t.Reservation.RoomID, &staffID,
		&t.Reservation.CheckIn, &t.Reservation.CheckOut, &t.Reservation.Status,
		&t.Reservation.TotalAmountCents, &t.Reservation.PaymentStatus, &t.Reservation.PaymentMethod,
		&t.Reservation.ConfirmationCode, &t.Reservation.IsClaimed,
		&t.Reservation.CreatedAt, &t.Reservation.UpdatedAt,
		&t.GuestEmail, &t.GuestRegistered)
	if err == sql.ErrNoRows {
		return t, ErrReservationNotFound
	}
	if err != nil {
		return t, err
	}
	if staffID.Valid {
		sid := uint64(staffID.Int64)
		t.Reservation.StaffID = &sid
	}
	return t, nil
}

// SetClaimedTx marks a reservation as claimed without changing its owner.
func (r *ReservationRepo) SetClaimedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE reservations SET is_claimed = ? WHERE id = ?`, true, id)
	return err
}

// ReassignGuestTx moves a reservation to a new owning guest and marks it
// claimed in the same statement, so ownership can never end up half-moved.
func (r *ReservationRepo) ReassignGuestTx(ctx context.Context, tx *sql.Tx, id, guestID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET guest_id = ?, is_claimed = ? WHERE id = ?`, guestID, true, id)
	return err
}

// UpdateDatesTx rewrites the stay window on date-change approval and records
// which staff member approved it.
func (r *ReservationRepo) UpdateDatesTx(ctx context.Context, tx *sql.Tx, id uint64, checkIn, checkOut time.Time, staffID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET check_in = ?, check_out = ?, staff_id = ? WHERE id = ?`,
		fmtDate(checkIn), fmtDate(checkOut), staffID, id)
	return err
}

// UpdateStatusTx transitions the persisted occupancy status (check-in and
// check-out by staff).
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	return err
}

// AddToTotalTx increases the reservation total by the given amount
// (service-charge flow).
func (r *ReservationRepo) AddToTotalTx(ctx context.Context, tx *sql.Tx, id uint64, amountCents int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET total_amount_cents = total_amount_cents + ? WHERE id = ?`, amountCents, id)
	return err
}

// DeleteTx removes a reservation row and returns the room id it occupied so
// the caller can free the room in the same transaction.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (uint64, error) {
	var roomID uint64
	err := tx.QueryRowContext(ctx, `SELECT room_id FROM reservations WHERE id = ?`, id).Scan(&roomID)
	if err == sql.ErrNoRows {
		return 0, ErrReservationNotFound
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return roomID, nil
}

// ReservationDetail is a reservation joined with its room and guest for
// display. Dates are rendered as "2006-01-02"; Stage is the derived label
// filled in by the handler from an explicit "now".
type ReservationDetail struct {
	ID               uint64 `json:"id"`
	GuestID          uint64 `json:"guest_id"`
	GuestName        string `json:"guest_name"`
	GuestEmail       string `json:"guest_email"`
	RoomID           uint64 `json:"room_id"`
	RoomNumber       string `json:"room_number"`
	RoomType         string `json:"room_type"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Status           string `json:"status"`
	Stage            string `json:"stage,omitempty"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	PaymentStatus    string `json:"payment_status"`
	IsClaimed        bool   `json:"is_claimed"`

	// parsed dates for stage derivation, not serialized
	CheckInDate  time.Time `json:"-"`
	CheckOutDate time.Time `json:"-"`
}

const detailQuery = `SELECT r.id, r.guest_id, g.name, g.email, ro.id, ro.number, rt.name,
		r.check_in, r.check_out, r.status, r.total_amount_cents, r.payment_status, r.is_claimed
	FROM reservations r
	JOIN guests g ON g.id = r.guest_id
	JOIN rooms ro ON ro.id = r.room_id
	JOIN room_types rt ON rt.id = ro.room_type_id`

func scanDetailRow(scan func(dest ...any) error) (ReservationDetail, error) {
	var d ReservationDetail
	err := scan(&d.ID, &d.GuestID, &d.GuestName, &d.GuestEmail, &d.RoomID, &d.RoomNumber, &d.RoomType,
		&d.CheckInDate, &d.CheckOutDate, &d.Status, &d.TotalAmountCents, &d.PaymentStatus, &d.IsClaimed)
	if err != nil {
		return d, err
	}
	d.CheckIn = fmtDate(d.CheckInDate)
	d.CheckOut = fmtDate(d.CheckOutDate)
	return d, nil
}

// GetDetail returns a reservation joined with room and guest data.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (ReservationDetail, error) {
	row := r.db.QueryRowContext(ctx, detailQuery+` WHERE r.id = ?`, id)
	d, err := scanDetailRow(row.Scan)
	if err == sql.ErrNoRows {
		return d, ErrReservationNotFound
	}
	return d, err
}

// ListByGuest returns a guest's claimed reservations, newest first. Unclaimed
// rows stay out of the list even when they already point at the guest's row:
// until the guest claims by confirmation code, a booking is reachable only
// through code plus email.
func (r *ReservationRepo) ListByGuest(ctx context.Context, guestID uint64) ([]ReservationDetail, error) {
	return r.listDetails(ctx,
		detailQuery+` WHERE r.guest_id = ? AND r.is_claimed = ? ORDER BY r.id DESC`,
		guestID, true)
}

// ListAll returns every reservation, newest first (staff view).
func (r *ReservationRepo) ListAll(ctx context.Context) ([]ReservationDetail, error) {
	return r.listDetails(ctx, detailQuery+` ORDER BY r.id DESC`)
}

func (r *ReservationRepo) listDetails(ctx context.Context, q string, args ...any) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		d, err := scanDetailRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats aggregates simple occupancy and revenue figures for the staff
// dashboard.
type Stats struct {
	Confirmed         int64 `json:"confirmed"`
	CheckedIn         int64 `json:"checked_in"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	PendingChanges    int64 `json:"pending_changes"`
}

// GetStats computes the staff dashboard aggregates.
func (r *ReservationRepo) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(total_amount_cents), 0)
		 FROM reservations`,
		model.ReservationConfirmed, model.ReservationCheckedIn).
		Scan(&s.Confirmed, &s.CheckedIn, &s.TotalRevenueCents)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservation_changes WHERE status = ?`, model.ChangePending).
		Scan(&s.PendingChanges)
	return s, err
}
