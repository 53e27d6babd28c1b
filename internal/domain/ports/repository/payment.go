package repository

import (
	"context"
	"time"

	"club-registration/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByPaymentIntent(ctx context.Context, tx Tx, intentID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, intentID *string, completedAt *time.Time) error
	SumCompletedByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}

// -----------------------------
// Refunds
// -----------------------------

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.RefundStatus, stripeRefundID *string, completedAt *time.Time) error
}

// -----------------------------
// Staged transactions (accounting write-ahead records)
// -----------------------------

type StagedTransactionRepository interface {
	Save(ctx context.Context, tx Tx, st *model.StagedTransaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.StagedTransaction, error)
	// Link ties a staged record to its Payment or Refund. Required before
	// any external submission.
	Link(ctx context.Context, tx Tx, id string, paymentID, refundID *string) error
	// MarkSubmitted records that the staged record is about to be handed to
	// the processor, so a later sweep can tell a never-submitted pending
	// record apart from one whose outcome was simply never written back.
	MarkSubmitted(ctx context.Context, tx Tx, id string, at time.Time) error
	// UpdateSyncStatusIf advances sync_status only when the current value
	// matches expected. Returns false (no error) when another writer won;
	// callers treat that as a successful no-op.
	UpdateSyncStatusIf(ctx context.Context, tx Tx, id string, expected, next model.SyncStatus, failureReason *string) (bool, error)
	// ListPendingOlderThan feeds the reconciliation sweep.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.StagedTransaction, error)
}
