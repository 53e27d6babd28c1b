package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.RegistrationRepository = (*registrationRepo)(nil)

type registrationRepo struct{ pool *pgxpool.Pool }

func NewRegistrationRepo(pool *pgxpool.Pool) *registrationRepo {
	return &registrationRepo{pool: pool}
}

const registrationColumns = `id, name, type, season_id, accounting_code, required_membership_id, alternate_enabled, alternate_price, alternate_accounting_code, presale_opens_at, opens_at, closes_at, created_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	if err := row.Scan(&reg.ID, &reg.Name, &reg.Type, &reg.SeasonID, &reg.AccountingCode, &reg.RequiredMembershipID, &reg.Alternate.Enabled, &reg.Alternate.Price, &reg.Alternate.AccountingCode, &reg.PresaleOpensAt, &reg.OpensAt, &reg.ClosesAt, &reg.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &reg, nil
}

func (r *registrationRepo) Save(ctx context.Context, tx repository.Tx, reg *model.Registration) error {
	const q = `
INSERT INTO registrations (
  id, name, type, season_id, accounting_code, required_membership_id,
  alternate_enabled, alternate_price, alternate_accounting_code,
  presale_opens_at, opens_at, closes_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  name=$2, type=$3, season_id=$4, accounting_code=$5, required_membership_id=$6,
  alternate_enabled=$7, alternate_price=$8, alternate_accounting_code=$9,
  presale_opens_at=$10, opens_at=$11, closes_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, reg.ID, reg.Name, reg.Type, reg.SeasonID, reg.AccountingCode, reg.RequiredMembershipID, reg.Alternate.Enabled, reg.Alternate.Price, reg.Alternate.AccountingCode, reg.PresaleOpensAt, reg.OpensAt, reg.ClosesAt, reg.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *registrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+registrationColumns+` FROM registrations WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRegistration(row)
}

func (r *registrationRepo) ListBySeason(ctx context.Context, tx repository.Tx, seasonID string) ([]*model.Registration, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+registrationColumns+` FROM registrations WHERE season_id=$1 ORDER BY created_at ASC;`, seasonID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Registration
	for rows.Next() {
		reg := new(model.Registration)
		if err := rows.Scan(&reg.ID, &reg.Name, &reg.Type, &reg.SeasonID, &reg.AccountingCode, &reg.RequiredMembershipID, &reg.Alternate.Enabled, &reg.Alternate.Price, &reg.Alternate.AccountingCode, &reg.PresaleOpensAt, &reg.OpensAt, &reg.ClosesAt, &reg.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, reg)
	}
	return out, nil
}

func (r *registrationRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM registrations WHERE id=$1;`, id)
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

// -----------------------------
// Categories
// -----------------------------

var _ repository.CategoryRepository = (*categoryRepo)(nil)

type categoryRepo struct{ pool *pgxpool.Pool }

func NewCategoryRepo(pool *pgxpool.Pool) *categoryRepo {
	return &categoryRepo{pool: pool}
}

const categoryColumns = `id, registration_id, name, required_membership_id, price, max_capacity, sort_order`

func (r *categoryRepo) Save(ctx context.Context, tx repository.Tx, c *model.RegistrationCategory) error {
	const q = `
INSERT INTO registration_categories (
  id, registration_id, name, required_membership_id, price, max_capacity, sort_order
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  name=$3, required_membership_id=$4, price=$5, max_capacity=$6, sort_order=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.RegistrationID, c.Name, c.RequiredMembershipID, c.Price, c.MaxCapacity, c.SortOrder)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *categoryRepo) Lock(ctx context.Context, tx repository.Tx, id string) error {
	// Transaction-scoped advisory lock keyed on the category id. Released
	// automatically at commit or rollback, so there is no unlock path.
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock(hashtext($1));`, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *categoryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RegistrationCategory, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+categoryColumns+` FROM registration_categories WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	var c model.RegistrationCategory
	if err := row.Scan(&c.ID, &c.RegistrationID, &c.Name, &c.RequiredMembershipID, &c.Price, &c.MaxCapacity, &c.SortOrder); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}

func (r *categoryRepo) ListByRegistration(ctx context.Context, tx repository.Tx, registrationID string) ([]*model.RegistrationCategory, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+categoryColumns+` FROM registration_categories WHERE registration_id=$1 ORDER BY sort_order ASC, name ASC;`, registrationID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RegistrationCategory
	for rows.Next() {
		c := new(model.RegistrationCategory)
		if err := rows.Scan(&c.ID, &c.RegistrationID, &c.Name, &c.RequiredMembershipID, &c.Price, &c.MaxCapacity, &c.SortOrder); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *categoryRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM registration_categories WHERE id=$1;`, id)
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
