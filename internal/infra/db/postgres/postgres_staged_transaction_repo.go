package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

var _ repository.StagedTransactionRepository = (*stagedTransactionRepo)(nil)

type stagedTransactionRepo struct{ pool *pgxpool.Pool }

func NewStagedTransactionRepo(pool *pgxpool.Pool) *stagedTransactionRepo {
	return &stagedTransactionRepo{pool: pool}
}

const stagedColumns = `id, kind, user_id, gross_amount, discount_amount, net_amount, line_items, discount_codes, sync_status, payment_id, refund_id, submitted_at, failure_reason, created_at, updated_at`

func (r *stagedTransactionRepo) Save(ctx context.Context, tx repository.Tx, st *model.StagedTransaction) error {
	items, err := json.Marshal(st.LineItems)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	codes, err := json.Marshal(st.DiscountCodes)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO staged_transactions (
  id, kind, user_id, gross_amount, discount_amount, net_amount,
  line_items, discount_codes, sync_status, payment_id, refund_id, submitted_at, failure_reason, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, st.ID, st.Kind, st.UserID, st.Amounts.Gross, st.Amounts.Discount, st.Amounts.Net, items, codes, st.SyncStatus, st.PaymentID, st.RefundID, st.SubmittedAt, st.FailureReason, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	// Staged records are immutable once written; a second insert with the
	// same ULID is a programming error, not an upsert.
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *stagedTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.StagedTransaction, error) {
	q := `SELECT ` + stagedColumns + ` FROM staged_transactions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanStaged(row)
}

func (r *stagedTransactionRepo) Link(ctx context.Context, tx repository.Tx, id string, paymentID, refundID *string) error {
	const q = `UPDATE staged_transactions SET payment_id=COALESCE($2, payment_id), refund_id=COALESCE($3, refund_id), updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentID, refundID)
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

func (r *stagedTransactionRepo) MarkSubmitted(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE staged_transactions SET submitted_at=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
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

func (r *stagedTransactionRepo) UpdateSyncStatusIf(ctx context.Context, tx repository.Tx, id string, expected, next model.SyncStatus, failureReason *string) (bool, error) {
	// The status predicate makes concurrent confirmations safe: exactly
	// one writer sees RowsAffected()==1, every other sees 0.
	const q = `
UPDATE staged_transactions
   SET sync_status=$3,
       failure_reason=COALESCE($4, failure_reason),
       updated_at=NOW()
 WHERE id=$1 AND sync_status=$2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, expected, next, failureReason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *stagedTransactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.StagedTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + stagedColumns + ` FROM staged_transactions WHERE sync_status='pending' AND updated_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.StagedTransaction
	for rows.Next() {
		st, err := scanStaged(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func scanStaged(row pgx.Row) (*model.StagedTransaction, error) {
	var st model.StagedTransaction
	var items, codes []byte
	if err := row.Scan(&st.ID, &st.Kind, &st.UserID, &st.Amounts.Gross, &st.Amounts.Discount, &st.Amounts.Net, &items, &codes, &st.SyncStatus, &st.PaymentID, &st.RefundID, &st.SubmittedAt, &st.FailureReason, &st.CreatedAt, &st.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &st.LineItems); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(codes) > 0 {
		if err := json.Unmarshal(codes, &st.DiscountCodes); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &st, nil
}
