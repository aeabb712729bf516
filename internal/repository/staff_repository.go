package repository

import (
	"context"
	"database/sql"

	"innkeeper/internal/model"
)

// StaffRepo provides access to the staff table. Staff live in a separate
// identity space from guests: lookups never share a code path with GuestRepo,
// each variant of the {GUEST, STAFF} tag has its own repository.
type StaffRepo struct {
	db *sql.DB
}

// NewStaffRepo returns a StaffRepo bound to the given database.
func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// GetByEmail fetches a staff member by normalized email.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (model.Staff, error) {
	var s model.Staff
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM staff WHERE email = ? LIMIT 1`,
		NormalizeEmail(email)).Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.CreatedAt)
	return s, err
}

// GetByID fetches a staff member by id.
func (r *StaffRepo) GetByID(ctx context.Context, id uint64) (model.Staff, error) {
	var s model.Staff
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM staff WHERE id = ? LIMIT 1`,
		id).Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.CreatedAt)
	return s, err
}
