package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RevocationRecord marks a token jti as revoked before its natural expiry.
type RevocationRecord struct {
	JTI       uuid.UUID
	UserID    uuid.UUID
	RevokedAt time.Time
}

// RevokeToken idempotently inserts a revocation record. A second revoke of
// the same jti is a no-op.
func (s *Store) RevokeToken(ctx context.Context, jti, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, user_id, revoked_at) VALUES (?, ?, ?)`,
		jti.String(), userID.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether jti has a revocation record.
func (s *Store) IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: check revocation: %w", err)
	}
	return n > 0, nil
}

// SweepExpiredRevocations deletes revocation rows older than before. Since a
// token is useless once its own exp has passed regardless of the revocation
// table, it is safe to drop any revocation record recorded before the
// longest-lived token's issuance window has elapsed. Callers pass
// now-minus-max-token-ttl as before.
func (s *Store) SweepExpiredRevocations(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE revoked_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("store: sweep revocations: %w", err)
	}
	return res.RowsAffected()
}
