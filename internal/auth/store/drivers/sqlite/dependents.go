package sqlite

import (
	"context"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
)

type dependentsRepo struct {
	q dbtx
}

const dependentColumns = `id, guardian_id, name, age_band, created_at, updated_at`

func (r *dependentsRepo) GetByID(ctx context.Context, id string) (domain.Dependent, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+dependentColumns+` FROM dependents WHERE id = ?`, id)

	var (
		d         domain.Dependent
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&d.ID, &d.GuardianID, &d.Name, &d.AgeBand, &createdAt, &updatedAt)
	if err != nil {
		return domain.Dependent{}, mapNotFound(err)
	}
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return d, nil
}

func (r *dependentsRepo) ListByGuardian(ctx context.Context, guardianID string) ([]domain.Dependent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+dependentColumns+` FROM dependents WHERE guardian_id = ? ORDER BY created_at`, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Dependent
	for rows.Next() {
		var (
			d         domain.Dependent
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&d.ID, &d.GuardianID, &d.Name, &d.AgeBand, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *dependentsRepo) Create(ctx context.Context, d domain.Dependent) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO dependents (id, guardian_id, name, age_band, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.GuardianID, d.Name, string(d.AgeBand), d.CreatedAt.Unix(), d.UpdatedAt.Unix())
	return mapConflict(err)
}
