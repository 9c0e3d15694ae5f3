package sqlite

import (
	"context"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
)

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) Create(ctx context.Context, s domain.DependentSession) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO dependent_sessions (token_id, guardian_id, dependent_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (token_id) DO NOTHING`,
		s.TokenID, s.GuardianID, s.DependentID, s.ExpiresAt.Unix(), s.CreatedAt.Unix())
	return err
}

func (r *sessionsRepo) ListActiveByGuardian(ctx context.Context, guardianID string, now time.Time) ([]domain.DependentSession, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT token_id, guardian_id, dependent_id, expires_at, created_at
		FROM dependent_sessions
		WHERE guardian_id = ? AND expires_at > ?
		ORDER BY created_at`,
		guardianID, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DependentSession
	for rows.Next() {
		var (
			s         domain.DependentSession
			expiresAt int64
			createdAt int64
		)
		if err := rows.Scan(&s.TokenID, &s.GuardianID, &s.DependentID, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM dependent_sessions WHERE expires_at < ?`, before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
