package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrInvalidRefresh is returned when a refresh token hash is unknown,
// expired or revoked.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenRepo stores hashed refresh tokens for both identity spaces. The
// subject_type column ("GUEST" or "STAFF") keeps guest and staff sessions
// apart even when numeric ids collide across the two tables.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh persists the hash of a refresh token with its expiry.
func (r *TokenRepo) StoreRefresh(ctx context.Context, subjectType string, subjectID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (subject_type, subject_id, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		subjectType, subjectID, tokenHash, expiresAt.UTC().Format("2006-01-02 15:04:05"))
	return err
}

// ValidateRefresh resolves a token hash to its subject. Unknown, expired or
// revoked hashes yield ErrInvalidRefresh.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, uint64, error) {
	var subjectType string
	var subjectID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT subject_type, subject_id FROM refresh_tokens
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ? LIMIT 1`,
		tokenHash, time.Now().UTC().Format("2006-01-02 15:04:05")).Scan(&subjectType, &subjectID)
	if err == sql.ErrNoRows {
		return "", 0, ErrInvalidRefresh
	}
	if err != nil {
		return "", 0, err
	}
	return subjectType, subjectID, nil
}

// RevokeByHash marks a single refresh token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		time.Now().UTC().Format("2006-01-02 15:04:05"), tokenHash)
	return err
}

// RevokeAllFor revokes every active refresh token of a subject, logging the
// subject out of all sessions.
func (r *TokenRepo) RevokeAllFor(ctx context.Context, subjectType string, subjectID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE subject_type = ? AND subject_id = ? AND revoked_at IS NULL`,
		time.Now().UTC().Format("2006-01-02 15:04:05"), subjectType, subjectID)
	return err
}
