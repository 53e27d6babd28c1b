package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.WaitlistRepository = (*waitlistRepo)(nil)

type waitlistRepo struct{ pool *pgxpool.Pool }

func NewWaitlistRepo(pool *pgxpool.Pool) *waitlistRepo {
	return &waitlistRepo{pool: pool}
}

func (r *waitlistRepo) Save(ctx context.Context, tx repository.Tx, w *model.WaitlistEntry) error {
	const q = `
INSERT INTO waitlist_entries (
  id, user_id, registration_id, category_id, position, joined_at, removed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  position=$5, removed_at=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, w.ID, w.UserID, w.RegistrationID, w.CategoryID, w.Position, w.JoinedAt, w.RemovedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *waitlistRepo) ListActive(ctx context.Context, tx repository.Tx, registrationID, categoryID string) ([]*model.WaitlistEntry, error) {
	const q = `
SELECT id, user_id, registration_id, category_id, position, joined_at, removed_at
  FROM waitlist_entries
 WHERE registration_id=$1 AND category_id=$2 AND removed_at IS NULL
 ORDER BY position ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, registrationID, categoryID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WaitlistEntry
	for rows.Next() {
		w := new(model.WaitlistEntry)
		if err := rows.Scan(&w.ID, &w.UserID, &w.RegistrationID, &w.CategoryID, &w.Position, &w.JoinedAt, &w.RemovedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *waitlistRepo) MaxPosition(ctx context.Context, tx repository.Tx, registrationID, categoryID string) (int, error) {
	// Removed entries keep their position but no longer weigh in here, so
	// positions are never reused while the list is occupied.
	const q = `
SELECT COALESCE(MAX(position), 0)
  FROM waitlist_entries
 WHERE registration_id=$1 AND category_id=$2 AND removed_at IS NULL;`
	row, err := pickRow(ctx, r.pool, tx, q, registrationID, categoryID)
	if err != nil {
		return 0, err
	}
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return max, nil
}

func (r *waitlistRepo) Remove(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	cmd, err := execSQL(ctx, r.pool, tx, `UPDATE waitlist_entries SET removed_at=$2 WHERE id=$1 AND removed_at IS NULL;`, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
