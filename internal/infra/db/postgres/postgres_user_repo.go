package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, email, display_name, is_lgbtq, is_goalie, is_admin, stripe_payment_method_id, setup_intent_status, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsLGBTQ, &u.IsGoalie, &u.IsAdmin, &u.StripePaymentMethodID, &u.SetupIntentStatus, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, email, display_name, is_lgbtq, is_goalie, is_admin, stripe_payment_method_id, setup_intent_status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  email=$2, display_name=$3, is_lgbtq=$4, is_goalie=$5, is_admin=$6,
  stripe_payment_method_id=$7, setup_intent_status=$8, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.DisplayName, u.IsLGBTQ, u.IsGoalie, u.IsAdmin, u.StripePaymentMethodID, u.SetupIntentStatus, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE email=$1 LIMIT 1;`, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) SetPaymentMethod(ctx context.Context, tx repository.Tx, userID string, paymentMethodID *string, status model.SetupIntentStatus) error {
	const q = `UPDATE users SET stripe_payment_method_id=$2, setup_intent_status=$3, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, paymentMethodID, status)
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

func (r *userRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := new(model.User)
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsLGBTQ, &u.IsGoalie, &u.IsAdmin, &u.StripePaymentMethodID, &u.SetupIntentStatus, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	return out, nil
}
