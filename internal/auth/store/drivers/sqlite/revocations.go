package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
)

type revocationsRepo struct {
	q dbtx
}

// Revoke is write-once. Concurrent revocations of the same token race to a
// single row; the losers are silently absorbed by the conflict clause, so the
// first recorded reason wins and the call stays idempotent.
func (r *revocationsRepo) Revoke(ctx context.Context, e domain.RevocationEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO revocations (token_id, reason, revoked_at, token_expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (token_id) DO NOTHING`,
		e.TokenID, e.Reason, e.RevokedAt.Unix(), e.TokenExpiresAt.Unix())
	return err
}

func (r *revocationsRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM revocations WHERE token_id = ?`, tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *revocationsRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM revocations WHERE token_expires_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
