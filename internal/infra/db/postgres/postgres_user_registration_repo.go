package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.UserRegistrationRepository = (*userRegistrationRepo)(nil)

type userRegistrationRepo struct{ pool *pgxpool.Pool }

func NewUserRegistrationRepo(pool *pgxpool.Pool) *userRegistrationRepo {
	return &userRegistrationRepo{pool: pool}
}

const userRegistrationColumns = `id, user_id, registration_id, category_id, payment_status, amount_paid, registration_fee, discount_code, payment_id, refunded_at, created_at, updated_at`

func scanUserRegistration(row pgx.Row) (*model.UserRegistration, error) {
	var ur model.UserRegistration
	if err := row.Scan(&ur.ID, &ur.UserID, &ur.RegistrationID, &ur.CategoryID, &ur.PaymentStatus, &ur.AmountPaid, &ur.RegistrationFee, &ur.DiscountCode, &ur.PaymentID, &ur.RefundedAt, &ur.CreatedAt, &ur.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ur, nil
}

func (r *userRegistrationRepo) Save(ctx context.Context, tx repository.Tx, ur *model.UserRegistration) error {
	// The partial unique index on (user_id, registration_id) over occupying
	// statuses is the commit-time duplicate guard; a violation surfaces as
	// ErrAlreadyExists.
	const q = `
INSERT INTO user_registrations (
  id, user_id, registration_id, category_id, payment_status, amount_paid,
  registration_fee, discount_code, payment_id, refunded_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  payment_status=$5, amount_paid=$6, registration_fee=$7, discount_code=$8,
  payment_id=$9, refunded_at=$10, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, ur.ID, ur.UserID, ur.RegistrationID, ur.CategoryID, ur.PaymentStatus, ur.AmountPaid, ur.RegistrationFee, ur.DiscountCode, ur.PaymentID, ur.RefundedAt, ur.CreatedAt, ur.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.UserRegistration, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userRegistrationColumns+` FROM user_registrations WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanUserRegistration(row)
}

func (r *userRegistrationRepo) FindPaidByUserAndRegistration(ctx context.Context, tx repository.Tx, userID, registrationID string) (*model.UserRegistration, error) {
	// Refunded and failed rows never block; the filter lives here so no
	// caller can forget it.
	const q = `
SELECT ` + userRegistrationColumns + `
  FROM user_registrations
 WHERE user_id=$1 AND registration_id=$2 AND payment_status='paid'
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, registrationID)
	if err != nil {
		return nil, err
	}
	return scanUserRegistration(row)
}

func (r *userRegistrationRepo) ListByRegistration(ctx context.Context, tx repository.Tx, registrationID string) ([]*model.UserRegistration, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userRegistrationColumns+` FROM user_registrations WHERE registration_id=$1 ORDER BY created_at ASC;`, registrationID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectUserRegistrations(rows)
}

func (r *userRegistrationRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.UserRegistration, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userRegistrationColumns+` FROM user_registrations WHERE payment_id=$1 ORDER BY created_at ASC;`, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectUserRegistrations(rows)
}

func (r *userRegistrationRepo) CountOccupying(ctx context.Context, tx repository.Tx, categoryIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return out, nil
	}
	const q = `
SELECT category_id, COUNT(*)
  FROM user_registrations
 WHERE category_id = ANY($1)
   AND payment_status IN ('paid','processing','awaiting_payment')
 GROUP BY category_id;`
	rows, err := queryRows(ctx, r.pool, tx, q, categoryIDs)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[id] = n
	}
	return out, nil
}

func (r *userRegistrationRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.RegistrationPaymentStatus) error {
	cmd, err := execSQL(ctx, r.pool, tx, `UPDATE user_registrations SET payment_status=$2, updated_at=NOW() WHERE id=$1;`, id, status)
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

func (r *userRegistrationRepo) AttachPayment(ctx context.Context, tx repository.Tx, ids []string, paymentID string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE user_registrations SET payment_id=$2, payment_status='processing', updated_at=NOW() WHERE id = ANY($1);`
	cmd, err := execSQL(ctx, r.pool, tx, q, ids, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if int(cmd.RowsAffected()) != len(ids) {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRegistrationRepo) UpdateStatusWhere(ctx context.Context, tx repository.Tx, paymentID string, from, to model.RegistrationPaymentStatus) ([]string, error) {
	const q = `
UPDATE user_registrations
   SET payment_status=$3,
       refunded_at = CASE WHEN $3 = 'refunded' THEN NOW() ELSE refunded_at END,
       updated_at = NOW()
 WHERE payment_id=$1 AND payment_status=$2
RETURNING id;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID, from, to)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *userRegistrationRepo) ListAbandonedAwaiting(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.UserRegistration, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + userRegistrationColumns + `
  FROM user_registrations
 WHERE payment_status='awaiting_payment' AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectUserRegistrations(rows)
}

func collectUserRegistrations(rows pgx.Rows) ([]*model.UserRegistration, error) {
	var out []*model.UserRegistration
	for rows.Next() {
		ur := new(model.UserRegistration)
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.RegistrationID, &ur.CategoryID, &ur.PaymentStatus, &ur.AmountPaid, &ur.RegistrationFee, &ur.DiscountCode, &ur.PaymentID, &ur.RefundedAt, &ur.CreatedAt, &ur.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, ur)
	}
	return out, nil
}
