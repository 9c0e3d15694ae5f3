package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
)

type guardiansRepo struct {
	q dbtx
}

const guardianColumns = `id, username, display_name, password_hash, mfa_secret, created_at, updated_at`

func scanGuardian(row *sql.Row) (domain.Guardian, error) {
	var (
		g         domain.Guardian
		mfaSecret sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&g.ID, &g.Username, &g.DisplayName, &g.PasswordHash, &mfaSecret, &createdAt, &updatedAt)
	if err != nil {
		return domain.Guardian{}, mapNotFound(err)
	}
	g.MFASecret = mapNullStringPtr(mfaSecret)
	g.CreatedAt = time.Unix(createdAt, 0).UTC()
	g.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return g, nil
}

func (r *guardiansRepo) GetByID(ctx context.Context, id string) (domain.Guardian, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE id = ?`, id)
	return scanGuardian(row)
}

func (r *guardiansRepo) GetByUsername(ctx context.Context, username string) (domain.Guardian, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE username = ?`, username)
	return scanGuardian(row)
}

func (r *guardiansRepo) Create(ctx context.Context, g domain.Guardian) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO guardians (id, username, display_name, password_hash, mfa_secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Username, g.DisplayName, g.PasswordHash, mapOptionalString(g.MFASecret),
		g.CreatedAt.Unix(), g.UpdatedAt.Unix())
	return mapConflict(err)
}

func (r *guardiansRepo) UpdateMFASecret(ctx context.Context, guardianID, secret string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE guardians SET mfa_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().Unix(), guardianID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
