package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema creates the full table set on an empty SQLite database. Stay
// dates are DATE columns and are always bound as "2006-01-02" strings, so the
// driver's type conversion and lexicographic range comparisons line up with
// the MySQL schema in scripts/schema.sql.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS room_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		base_rate_cents INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seasonal_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_type_id INTEGER NOT NULL REFERENCES room_types(id),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		multiplier REAL NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_type_id INTEGER NOT NULL REFERENCES room_types(id),
		number TEXT NOT NULL UNIQUE,
		floor INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'AVAILABLE'
	)`,
	`CREATE TABLE IF NOT EXISTS guests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT,
		is_account_created BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guest_id INTEGER NOT NULL REFERENCES guests(id),
		room_id INTEGER NOT NULL REFERENCES rooms(id),
		staff_id INTEGER REFERENCES staff(id),
		check_in DATE NOT NULL,
		check_out DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'CONFIRMED',
		total_amount_cents INTEGER NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL DEFAULT 'PAID',
		payment_method TEXT NOT NULL DEFAULT '',
		confirmation_code TEXT NOT NULL UNIQUE,
		is_claimed BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS reservation_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reservation_id INTEGER NOT NULL REFERENCES reservations(id),
		staff_id INTEGER REFERENCES staff(id),
		change_type TEXT NOT NULL,
		old_check_in DATE NOT NULL,
		old_check_out DATE NOT NULL,
		new_check_in DATE,
		new_check_out DATE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price_cents INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS service_charges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reservation_id INTEGER NOT NULL REFERENCES reservations(id),
		service_id INTEGER NOT NULL REFERENCES services(id),
		quantity INTEGER NOT NULL DEFAULT 1,
		amount_cents INTEGER NOT NULL,
		charged_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_type TEXT NOT NULL,
		subject_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_room_dates ON reservations(room_id, check_in, check_out)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_reservation ON reservation_changes(reservation_id, status)`,
}

// OpenSQLite opens (and if needed bootstraps) an embedded SQLite store.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single pooled connection avoids
	// table-lock errors and keeps :memory: databases from vanishing.
	db.SetMaxOpenConns(1)
	for _, q := range sqliteSchema {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
