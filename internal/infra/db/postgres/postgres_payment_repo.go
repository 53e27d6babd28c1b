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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, total_amount, final_amount, payment_intent_id, status, completed_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(&p.ID, &p.UserID, &p.TotalAmount, &p.FinalAmount, &p.PaymentIntentID, &p.Status, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, total_amount, final_amount, payment_intent_id, status, completed_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  total_amount=$3, final_amount=$4, payment_intent_id=$5, status=$6, completed_at=$7, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.TotalAmount, p.FinalAmount, p.PaymentIntentID, p.Status, p.CompletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByPaymentIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE payment_intent_id=$1 LIMIT 1;`, intentID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, intentID *string, completedAt *time.Time) error {
	const q = `UPDATE payments SET status=$2, payment_intent_id=COALESCE($3, payment_intent_id), completed_at=COALESCE($4, completed_at), updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, intentID, completedAt)
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

func (r *paymentRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `SELECT COALESCE(SUM(final_amount),0) FROM payments WHERE status='completed' AND completed_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

// -----------------------------
// Refunds
// -----------------------------

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

const refundColumns = `id, payment_id, user_id, amount, reason, status, stripe_refund_id, processed_by, completed_at, created_at`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	var rf model.Refund
	if err := row.Scan(&rf.ID, &rf.PaymentID, &rf.UserID, &rf.Amount, &rf.Reason, &rf.Status, &rf.StripeRefundID, &rf.ProcessedBy, &rf.CompletedAt, &rf.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &rf, nil
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	const q = `
INSERT INTO refunds (
  id, payment_id, user_id, amount, reason, status, stripe_refund_id, processed_by, completed_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  status=$6, stripe_refund_id=$7, completed_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, rf.ID, rf.PaymentID, rf.UserID, rf.Amount, rf.Reason, rf.Status, rf.StripeRefundID, rf.ProcessedBy, rf.CompletedAt, rf.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+refundColumns+` FROM refunds WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+refundColumns+` FROM refunds WHERE payment_id=$1 ORDER BY created_at ASC;`, paymentID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		rf := new(model.Refund)
		if err := rows.Scan(&rf.ID, &rf.PaymentID, &rf.UserID, &rf.Amount, &rf.Reason, &rf.Status, &rf.StripeRefundID, &rf.ProcessedBy, &rf.CompletedAt, &rf.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rf)
	}
	return out, nil
}

func (r *refundRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, stripeRefundID *string, completedAt *time.Time) error {
	const q = `UPDATE refunds SET status=$2, stripe_refund_id=COALESCE($3, stripe_refund_id), completed_at=COALESCE($4, completed_at) WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, stripeRefundID, completedAt)
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
