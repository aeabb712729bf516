package repository

import (
	"context"
	"database/sql"
	"strings"

	"innkeeper/internal/model"
)

// GuestRepo provides access to the guests table and implements identity
// resolution: a guest row is keyed by email and may exist with or without
// credentials. Rows are never deleted or merged; an anonymous row created by
// a booking is upgraded in place when the same email registers.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// DB exposes the underlying handle for cross-repository transactions.
func (r *GuestRepo) DB() *sql.DB { return r.db }

const guestColumns = `id, name, email, phone, password_hash, is_account_created, created_at, updated_at`

func scanGuest(row *sql.Row) (model.Guest, error) {
	var g model.Guest
	var hash sql.NullString
	err := row.Scan(&g.ID, &g.Name, &g.Email, &g.Phone, &hash, &g.IsAccountCreated, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return g, ErrGuestNotFound
	}
	if err != nil {
		return g, err
	}
	if hash.Valid {
		h := hash.String
		g.PasswordHash = &h
	}
	return g, nil
}

// NormalizeEmail lowercases and trims an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByEmail fetches a guest by normalized email.
func (r *GuestRepo) GetByEmail(ctx context.Context, email string) (model.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE email = ? LIMIT 1`, NormalizeEmail(email)))
}

// GetByEmailTx is GetByEmail inside an existing transaction.
func (r *GuestRepo) GetByEmailTx(ctx context.Context, tx *sql.Tx, email string) (model.Guest, error) {
	return scanGuest(tx.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE email = ? LIMIT 1`, NormalizeEmail(email)))
}

// GetByID fetches a guest by id.
func (r *GuestRepo) GetByID(ctx context.Context, id uint64) (model.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = ? LIMIT 1`, id))
}

// CreateTx inserts a guest row. passwordHash may be nil for anonymous
// walk-up/online guests; isAccount marks rows created with credentials.
func (r *GuestRepo) CreateTx(ctx context.Context, tx *sql.Tx, name, email, phone string, passwordHash *string, isAccount bool) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO guests (name, email, phone, password_hash, is_account_created) VALUES (?, ?, ?, ?, ?)`,
		name, NormalizeEmail(email), phone, passwordHash, isAccount)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// upgradeTx turns an anonymous guest row into an authenticatable account in
// place. This is the only path that gives a walk-in guest credentials.
func (r *GuestRepo) upgradeTx(ctx context.Context, tx *sql.Tx, id uint64, name, phone, passwordHash string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE guests SET name = ?, phone = ?, password_hash = ?, is_account_created = ? WHERE id = ?`,
		name, phone, passwordHash, true, id)
	return err
}

// ResolveForStayTx resolves the guest identity for a booking inside an
// existing transaction. The rules:
//
//   - no row for the email: create one, with credentials when the booker
//     opted into an account (passwordHash non-nil);
//   - anonymous row exists and credentials are supplied: upgrade in place;
//   - anonymous row exists, no credentials: reuse the row as-is;
//   - registered row exists and credentials are supplied: ErrAccountExists,
//     the booker should log in instead;
//   - registered row exists, no credentials: reuse the row (the reservation
//     stays unclaimed until the owner claims it by code).
func (r *GuestRepo) ResolveForStayTx(ctx context.Context, tx *sql.Tx, name, email, phone string, passwordHash *string) (uint64, error) {
	g, err := r.GetByEmailTx(ctx, tx, email)
	if err == ErrGuestNotFound {
		return r.CreateTx(ctx, tx, name, email, phone, passwordHash, passwordHash != nil)
	}
	if err != nil {
		return 0, err
	}
	if passwordHash == nil {
		return g.ID, nil
	}
	if g.IsAccountCreated {
		return 0, ErrAccountExists
	}
	if err := r.upgradeTx(ctx, tx, g.ID, name, phone, *passwordHash); err != nil {
		return 0, err
	}
	return g.ID, nil
}

// RegisterAccount creates or upgrades a guest account with credentials. It
// runs in its own transaction and returns the guest id on success. A second
// registration for an already-registered email fails with ErrAccountExists.
func (r *GuestRepo) RegisterAccount(ctx context.Context, name, email, phone, passwordHash string) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	id, err := r.ResolveForStayTx(ctx, tx, name, email, phone, &passwordHash)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return id, nil
}
