package repository

import (
	"context"
	"database/sql"
	"time"

	"innkeeper/internal/model"
)

// ChargeRepo provides access to the service catalogue and service charges.
// Adding a charge and bumping the reservation total are one logical unit; the
// caller wraps both in a transaction.
type ChargeRepo struct {
	db *sql.DB
}

// NewChargeRepo returns a ChargeRepo bound to the given database.
func NewChargeRepo(db *sql.DB) *ChargeRepo { return &ChargeRepo{db: db} }

// GetServiceTx fetches a catalogue entry inside an existing transaction.
func (r *ChargeRepo) GetServiceTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Service, error) {
	var s model.Service
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, price_cents FROM services WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.PriceCents)
	if err == sql.ErrNoRows {
		return s, ErrServiceNotFound
	}
	return s, err
}

// AddTx inserts a charge line inside an existing transaction. The caller is
// responsible for increasing the reservation total in the same transaction.
func (r *ChargeRepo) AddTx(ctx context.Context, tx *sql.Tx, ch *model.ServiceCharge) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO service_charges (reservation_id, service_id, quantity, amount_cents, charged_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ch.ReservationID, ch.ServiceID, ch.Quantity, ch.AmountCents,
		time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ch.ID = uint64(id)
	return nil
}

// ChargeLine is a charge joined with its service name for the bill.
type ChargeLine struct {
	ServiceName string `json:"service"`
	Quantity    int    `json:"quantity"`
	AmountCents int64  `json:"amount_cents"`
	ChargedAt   string `json:"charged_at"`
}

// ListByReservation returns the charge lines of a reservation in charge
// order.
func (r *ChargeRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]ChargeLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.name, c.quantity, c.amount_cents, c.charged_at
		 FROM service_charges c
		 JOIN services s ON s.id = c.service_id
		 WHERE c.reservation_id = ?
		 ORDER BY c.id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ChargeLine, 0)
	for rows.Next() {
		var l ChargeLine
		var at time.Time
		if err := rows.Scan(&l.ServiceName, &l.Quantity, &l.AmountCents, &at); err != nil {
			return nil, err
		}
		l.ChargedAt = at.UTC().Format(time.RFC3339)
		out = append(out, l)
	}
	return out, rows.Err()
}
