package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.MembershipRepository = (*membershipRepo)(nil)

type membershipRepo struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *membershipRepo {
	return &membershipRepo{pool: pool}
}

const membershipColumns = `id, name, monthly_price, annual_price, accounting_code, discount_eligible, monthly_available, created_at`

func (r *membershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (
  id, name, monthly_price, annual_price, accounting_code, discount_eligible, monthly_available, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  name=$2, monthly_price=$3, annual_price=$4, accounting_code=$5, discount_eligible=$6, monthly_available=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.Name, m.MonthlyPrice, m.AnnualPrice, m.AccountingCode, m.DiscountEligible, m.MonthlyAvailable, m.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Membership, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+membershipColumns+` FROM memberships WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	var m model.Membership
	if err := row.Scan(&m.ID, &m.Name, &m.MonthlyPrice, &m.AnnualPrice, &m.AccountingCode, &m.DiscountEligible, &m.MonthlyAvailable, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &m, nil
}

func (r *membershipRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Membership, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+membershipColumns+` FROM memberships WHERE id = ANY($1);`, ids)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (r *membershipRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Membership, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+membershipColumns+` FROM memberships ORDER BY name ASC;`)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (r *membershipRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM memberships WHERE id=$1;`, id)
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

func collectMemberships(rows pgx.Rows) ([]*model.Membership, error) {
	var out []*model.Membership
	for rows.Next() {
		m := new(model.Membership)
		if err := rows.Scan(&m.ID, &m.Name, &m.MonthlyPrice, &m.AnnualPrice, &m.AccountingCode, &m.DiscountEligible, &m.MonthlyAvailable, &m.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, m)
	}
	return out, nil
}

// -----------------------------
// User memberships
// -----------------------------

var _ repository.UserMembershipRepository = (*userMembershipRepo)(nil)

type userMembershipRepo struct{ pool *pgxpool.Pool }

func NewUserMembershipRepo(pool *pgxpool.Pool) *userMembershipRepo {
	return &userMembershipRepo{pool: pool}
}

const userMembershipColumns = `id, user_id, membership_id, valid_from, valid_until, payment_status, amount_paid, payment_intent_id, created_at`

func (r *userMembershipRepo) Save(ctx context.Context, tx repository.Tx, um *model.UserMembership) error {
	const q = `
INSERT INTO user_memberships (
  id, user_id, membership_id, valid_from, valid_until, payment_status, amount_paid, payment_intent_id, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  valid_from=$4, valid_until=$5, payment_status=$6, amount_paid=$7, payment_intent_id=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, um.ID, um.UserID, um.MembershipID, um.ValidFrom, um.ValidUntil, um.PaymentStatus, um.AmountPaid, um.PaymentIntentID, um.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userMembershipRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserMembership, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userMembershipColumns+` FROM user_memberships WHERE user_id=$1 ORDER BY valid_from ASC;`, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectUserMemberships(rows)
}

func (r *userMembershipRepo) UpdatePaymentStatus(ctx context.Context, tx repository.Tx, id string, status model.MembershipPaymentStatus) error {
	cmd, err := execSQL(ctx, r.pool, tx, `UPDATE user_memberships SET payment_status=$2 WHERE id=$1;`, id, status)
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

func (r *userMembershipRepo) ListExpiringWithin(ctx context.Context, tx repository.Tx, days int) ([]*model.UserMembership, error) {
	const q = `
SELECT ` + userMembershipColumns + `
  FROM user_memberships
 WHERE payment_status='paid'
   AND valid_until >= CURRENT_DATE
   AND valid_until < CURRENT_DATE + $1 * INTERVAL '1 day'
 ORDER BY valid_until ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, days)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return collectUserMemberships(rows)
}

func collectUserMemberships(rows pgx.Rows) ([]*model.UserMembership, error) {
	var out []*model.UserMembership
	for rows.Next() {
		um := new(model.UserMembership)
		if err := rows.Scan(&um.ID, &um.UserID, &um.MembershipID, &um.ValidFrom, &um.ValidUntil, &um.PaymentStatus, &um.AmountPaid, &um.PaymentIntentID, &um.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, um)
	}
	return out, nil
}
