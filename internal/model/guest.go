package model

import "time"

// Subject types stored with refresh tokens and carried in JWT role claims.
// Guests and staff live in separate tables, so the same email may exist in
// both spaces without conflict.
const (
	RoleGuest = "GUEST"
	RoleStaff = "STAFF"
)

// Guest mirrors the guests table. A guest row can exist without credentials:
// walk-up and online bookings create the row with IsAccountCreated=false and
// a NULL password hash. When the same email later registers, the row is
// upgraded in place rather than duplicated.
type Guest struct {
	ID               uint64    // guests.id
	Name             string    // guests.name
	Email            string    // guests.email (unique)
	Phone            string    // guests.phone
	PasswordHash     *string   // guests.password_hash (nullable)
	IsAccountCreated bool      // guests.is_account_created
	CreatedAt        time.Time // guests.created_at
	UpdatedAt        time.Time // guests.updated_at
}

// Staff mirrors the staff table. Staff accounts are provisioned out of band
// (see scripts/schema.sql) and always carry credentials.
type Staff struct {
	ID           uint64    // staff.id
	Name         string    // staff.name
	Email        string    // staff.email
	PasswordHash string    // staff.password_hash
	CreatedAt    time.Time // staff.created_at
}

// RefreshToken models a refresh_tokens row. Only the SHA-256 hash of the
// token is stored; SubjectType distinguishes guest sessions from staff ones.
type RefreshToken struct {
	ID          uint64     // refresh_tokens.id
	SubjectType string     // refresh_tokens.subject_type (GUEST | STAFF)
	SubjectID   uint64     // refresh_tokens.subject_id
	TokenHash   string     // refresh_tokens.token_hash
	ExpiresAt   time.Time  // refresh_tokens.expires_at
	RevokedAt   *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt   time.Time  // refresh_tokens.created_at
}
