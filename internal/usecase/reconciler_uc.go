package usecase

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/adapter"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/infra/metrics"
)

// Compile-time check
var _ ReconcilerUseCase = (*reconcilerUC)(nil)

// MetadataStagedID is the processor metadata key carrying the staged
// transaction id, so webhook confirmations can correlate back.
const MetadataStagedID = "staged_transaction_id"

// ProcessorResult is the normalized payload of an asynchronous confirmation.
type ProcessorResult struct {
	Succeeded bool
	// PaymentIntentID or RefundID depending on the transaction kind.
	ExternalID string
	Reason     string
}

// ChargeOutcome reports a finished charge flow.
type ChargeOutcome struct {
	Payment *model.Payment
	Staged  *model.StagedTransaction
}

// RefundOutcome reports a finished refund flow, including the classified
// kind and the member-facing message.
type RefundOutcome struct {
	Refund  *model.Refund
	Kind    model.RefundKind
	Message string
}

type RefundParams struct {
	PaymentID   string
	Amount      int64
	Reason      string
	ProcessedBy string
	LineItems   []model.LineItem
}

type ReconcilerUseCase interface {
	// StageTransaction writes the write-ahead accounting record. A staging
	// failure aborts the whole flow before any external call.
	StageTransaction(ctx context.Context, kind model.TransactionKind, userID string, amounts model.Amounts, items []model.LineItem, discountCodes []string) (*model.StagedTransaction, error)

	// ExecuteCharge links the staged record to a new Payment, attaches the
	// given registration rows to it, submits the charge (unless
	// zero-dollar) and finalizes on synchronous success.
	ExecuteCharge(ctx context.Context, stagedID, userID, paymentMethodID string, registrationIDs []string) (*ChargeOutcome, error)

	// ExecuteRefund stages, classifies and submits a refund against an
	// existing payment, rolling registration rows back on processor failure.
	ExecuteRefund(ctx context.Context, p RefundParams) (*RefundOutcome, error)

	// ConfirmTransaction applies an asynchronous processor confirmation.
	// Idempotent: a transition already applied is a no-op on retry.
	ConfirmTransaction(ctx context.Context, stagedID string, result ProcessorResult) error

	// RollbackTransaction fails a staged record and restores any
	// optimistically-mutated domain rows.
	RollbackTransaction(ctx context.Context, stagedID, reason string) error
}

type reconcilerUC struct {
	staged   repository.StagedTransactionRepository
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	userRegs repository.UserRegistrationRepository
	userMems repository.UserMembershipRepository
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	notify   NotifyFunc
	now      func() time.Time
	log      *zerolog.Logger
}

// NotifyFunc stages a member notification. Implementations must be
// non-blocking; delivery failures never affect financial state.
type NotifyFunc func(n adapter.Notification)

func NewReconcilerUseCase(
	staged repository.StagedTransactionRepository,
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	userRegs repository.UserRegistrationRepository,
	userMems repository.UserMembershipRepository,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	notify NotifyFunc,
	logger *zerolog.Logger,
) *reconcilerUC {
	if notify == nil {
		notify = func(adapter.Notification) {}
	}
	compLog := logger.With().Str("component", "ReconcilerUC").Logger()
	return &reconcilerUC{
		staged:   staged,
		payments: payments,
		refunds:  refunds,
		userRegs: userRegs,
		userMems: userMems,
		gateway:  gateway,
		tm:       tm,
		notify:   notify,
		now:      time.Now,
		log:      &compLog,
	}
}

func newStagedID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

func (uc *reconcilerUC) StageTransaction(ctx context.Context, kind model.TransactionKind, userID string, amounts model.Amounts, items []model.LineItem, discountCodes []string) (*model.StagedTransaction, error) {
	if userID == "" || amounts.Net < 0 || amounts.Gross < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := uc.now()
	st := &model.StagedTransaction{
		ID:            newStagedID(now),
		Kind:          kind,
		UserID:        userID,
		Amounts:       amounts,
		LineItems:     items,
		DiscountCodes: discountCodes,
		SyncStatus:    model.SyncStaged,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.staged.Save(ctx, repository.NoTX, st); err != nil {
		// Fail fast: without a local write-ahead record an external charge
		// would be orphaned.
		uc.log.Error().Err(err).Str("user_id", userID).Msg("staging write failed, aborting before external call")
		return nil, err
	}
	metrics.IncStaged(string(kind))
	return st, nil
}

func (uc *reconcilerUC) ExecuteCharge(ctx context.Context, stagedID, userID, paymentMethodID string, registrationIDs []string) (*ChargeOutcome, error) {
	st, err := uc.staged.FindByID(ctx, repository.NoTX, stagedID)
	if err != nil {
		return nil, err
	}
	if st.SyncStatus != model.SyncStaged {
		return nil, domain.ErrStaleTransition
	}

	now := uc.now()
	payment := &model.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		TotalAmount: st.Amounts.Gross,
		FinalAmount: st.Amounts.Net,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Zero-dollar transactions bypass the processor entirely but still
	// complete the accounting record for audit.
	if st.IsZeroDollar() {
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			payment.Status = model.PaymentStatusCompleted
			payment.CompletedAt = &now
			if err := uc.payments.Save(ctx, tx, payment); err != nil {
				return err
			}
			if err := uc.staged.Link(ctx, tx, st.ID, &payment.ID, nil); err != nil {
				return err
			}
			if len(registrationIDs) > 0 {
				if err := uc.userRegs.AttachPayment(ctx, tx, registrationIDs, payment.ID); err != nil {
					return err
				}
				if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, payment.ID, model.RegistrationProcessing, model.RegistrationPaid); err != nil {
					return err
				}
			}
			ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncStaged, model.SyncCompleted, nil)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrStaleTransition
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		metrics.IncPayment("completed")
		st.SyncStatus = model.SyncCompleted
		st.PaymentID = &payment.ID
		return &ChargeOutcome{Payment: payment, Staged: st}, nil
	}

	if paymentMethodID == "" {
		return nil, domain.ErrNoPaymentMethod
	}

	// Phase one: persist the pending payment and advance the staged record
	// before the processor sees anything.
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.payments.Save(ctx, tx, payment); err != nil {
			return err
		}
		if err := uc.staged.Link(ctx, tx, st.ID, &payment.ID, nil); err != nil {
			return err
		}
		if len(registrationIDs) > 0 {
			if err := uc.userRegs.AttachPayment(ctx, tx, registrationIDs, payment.ID); err != nil {
				return err
			}
		}
		ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncStaged, model.SyncPending, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrStaleTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The submission marker must be durable before the processor sees the
	// charge: without it a crash between here and finalize would be
	// indistinguishable from a charge that never left the building, and the
	// sweep would roll back real money.
	if err := uc.staged.MarkSubmitted(ctx, repository.NoTX, st.ID, uc.now()); err != nil {
		uc.log.Error().Err(err).Str("staged_id", st.ID).Msg("submission marker write failed, aborting before external call")
		uc.abortCharge(ctx, st.ID, payment.ID, "submission marker write failed")
		metrics.IncPayment("failed")
		return nil, err
	}

	// Phase two: the external call, outside any database transaction.
	res, chargeErr := uc.gateway.CreateCharge(ctx, st.Amounts.Net, paymentMethodID, map[string]string{
		MetadataStagedID: st.ID,
	})
	if chargeErr != nil {
		uc.log.Error().Err(chargeErr).
			Str("staged_id", st.ID).
			Str("payment_id", payment.ID).
			Int64("amount", st.Amounts.Net).
			Msg("charge submission failed")
		uc.abortCharge(ctx, st.ID, payment.ID, chargeErr.Error())
		metrics.IncPayment("failed")
		return nil, chargeErr
	}

	// Synchronous success: finalize. A later webhook retry becomes a no-op
	// through the sync_status predicate.
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.payments.UpdateStatus(ctx, tx, payment.ID, model.PaymentStatusCompleted, &res.PaymentIntentID, &now); err != nil {
			return err
		}
		if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, payment.ID, model.RegistrationProcessing, model.RegistrationPaid); err != nil {
			return err
		}
		_, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncPending, model.SyncCompleted, nil)
		return err
	})
	if err != nil {
		// The member was charged; nothing local may be unwound. Leave the
		// pending record and the processing rows for the webhook or the
		// sweep to settle.
		uc.log.Error().Err(err).
			Str("staged_id", st.ID).
			Str("payment_id", payment.ID).
			Msg("finalize after successful charge failed, leaving settlement to confirmation")
		return nil, domain.ErrSettlementPending
	}

	payment.Status = model.PaymentStatusCompleted
	payment.PaymentIntentID = &res.PaymentIntentID
	payment.CompletedAt = &now
	st.SyncStatus = model.SyncCompleted
	st.PaymentID = &payment.ID
	metrics.IncPayment("completed")
	metrics.AddPaymentRevenue(st.Amounts.Net)
	return &ChargeOutcome{Payment: payment, Staged: st}, nil
}

// abortCharge unwinds phase one when the charge provably never reached the
// processor: payment failed, claimed rows back to awaiting_payment for the
// expiry sweep (or a retry), staged record failed with the reason.
func (uc *reconcilerUC) abortCharge(ctx context.Context, stagedID, paymentID, reason string) {
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.payments.UpdateStatus(ctx, tx, paymentID, model.PaymentStatusFailed, nil, nil); err != nil {
			return err
		}
		if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, paymentID, model.RegistrationProcessing, model.RegistrationAwaitingPayment); err != nil {
			return err
		}
		_, err := uc.staged.UpdateSyncStatusIf(ctx, tx, stagedID, model.SyncPending, model.SyncFailed, &reason)
		return err
	})
	if err != nil {
		uc.log.Error().Err(err).Str("staged_id", stagedID).Msg("rollback after charge failure also failed")
	}
}

func (uc *reconcilerUC) ExecuteRefund(ctx context.Context, p RefundParams) (*RefundOutcome, error) {
	payment, err := uc.payments.FindByID(ctx, repository.NoTX, p.PaymentID)
	if err != nil {
		return nil, err
	}
	kind, err := model.ClassifyRefund(p.Amount, payment)
	if err != nil {
		return nil, err
	}

	items := p.LineItems
	if len(items) == 0 {
		// Always produce at least one accounting line, even for zero-dollar
		// refunds.
		items = []model.LineItem{{
			Kind:        model.LineItemRegistration,
			Description: "Refund",
			Amount:      p.Amount,
		}}
	}
	amounts := model.Amounts{Gross: payment.FinalAmount, Discount: payment.FinalAmount - p.Amount, Net: p.Amount}
	st, err := uc.StageTransaction(ctx, model.TransactionRefund, payment.UserID, amounts, items, nil)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	refund := &model.Refund{
		ID:          uuid.NewString(),
		PaymentID:   payment.ID,
		UserID:      payment.UserID,
		Amount:      p.Amount,
		Reason:      p.Reason,
		Status:      model.RefundStatusPending,
		ProcessedBy: p.ProcessedBy,
		CreatedAt:   now,
	}

	// Zero-dollar refund: no processor call, straight to completed.
	if kind == model.RefundZero {
		err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			refund.Status = model.RefundStatusCompleted
			refund.CompletedAt = &now
			if err := uc.refunds.Save(ctx, tx, refund); err != nil {
				return err
			}
			if err := uc.staged.Link(ctx, tx, st.ID, nil, &refund.ID); err != nil {
				return err
			}
			ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncStaged, model.SyncCompleted, nil)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrStaleTransition
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		metrics.IncRefund(string(kind))
		return &RefundOutcome{Refund: refund, Kind: kind, Message: model.RefundMessage(kind, p.Amount, payment.FinalAmount)}, nil
	}

	if payment.PaymentIntentID == nil {
		return nil, domain.ErrInvalidArgument
	}

	// Optimistically mark registration rows refunded (full refunds only)
	// and remember exactly which rows changed so a processor failure can
	// restore them.
	var touched []string
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.refunds.Save(ctx, tx, refund); err != nil {
			return err
		}
		if err := uc.staged.Link(ctx, tx, st.ID, nil, &refund.ID); err != nil {
			return err
		}
		ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncStaged, model.SyncPending, nil)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrStaleTransition
		}
		if kind == model.RefundFull {
			touched, err = uc.userRegs.UpdateStatusWhere(ctx, tx, payment.ID, model.RegistrationPaid, model.RegistrationRefunded)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, refundErr := uc.gateway.CreateRefund(ctx, *payment.PaymentIntentID, p.Amount, map[string]string{
		MetadataStagedID: st.ID,
	})
	if refundErr != nil {
		uc.log.Error().Err(refundErr).
			Str("staged_id", st.ID).
			Str("payment_id", payment.ID).
			Str("refund_id", refund.ID).
			Int64("amount", p.Amount).
			Msg("refund submission failed, rolling back")
		reason := refundErr.Error()
		rbErr := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := uc.refunds.UpdateStatus(ctx, tx, refund.ID, model.RefundStatusFailed, nil, nil); err != nil {
				return err
			}
			if _, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncPending, model.SyncFailed, &reason); err != nil {
				return err
			}
			// Restore exactly the rows this attempt flipped.
			for _, id := range touched {
				if err := uc.userRegs.UpdatePaymentStatus(ctx, tx, id, model.RegistrationPaid); err != nil {
					return err
				}
			}
			return nil
		})
		if rbErr != nil {
			uc.log.Error().Err(rbErr).Str("staged_id", st.ID).Msg("rollback after refund failure also failed")
		}
		metrics.IncRefund("failed")
		return nil, refundErr
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.refunds.UpdateStatus(ctx, tx, refund.ID, model.RefundStatusCompleted, &res.RefundID, &now); err != nil {
			return err
		}
		if kind == model.RefundFull {
			if err := uc.payments.UpdateStatus(ctx, tx, payment.ID, model.PaymentStatusRefunded, nil, nil); err != nil {
				return err
			}
		}
		_, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncPending, model.SyncCompleted, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	refund.Status = model.RefundStatusCompleted
	refund.StripeRefundID = &res.RefundID
	refund.CompletedAt = &now
	msg := model.RefundMessage(kind, p.Amount, payment.FinalAmount)
	metrics.IncRefund(string(kind))
	uc.notify(adapter.Notification{UserID: payment.UserID, Subject: "Refund processed", Body: msg})
	return &RefundOutcome{Refund: refund, Kind: kind, Message: msg}, nil
}

func (uc *reconcilerUC) ConfirmTransaction(ctx context.Context, stagedID string, result ProcessorResult) error {
	st, err := uc.staged.FindByID(ctx, repository.NoTX, stagedID)
	if err != nil {
		return err
	}
	// Already settled: at-least-once delivery retries land here and must
	// not double-apply anything.
	if st.SyncStatus == model.SyncCompleted || st.SyncStatus == model.SyncFailed || st.SyncStatus == model.SyncIgnore {
		return nil
	}
	if st.SyncStatus == model.SyncStaged {
		// Never confirmed externally while unlinked; a webhook for an
		// unsubmitted record indicates a correlation bug.
		return domain.ErrNotStaged
	}

	if !result.Succeeded {
		return uc.RollbackTransaction(ctx, stagedID, result.Reason)
	}

	now := uc.now()
	var won bool
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, model.SyncPending, model.SyncCompleted, nil)
		if err != nil {
			return err
		}
		if !ok {
			// Lost to a concurrent confirm (synchronous path or another
			// webhook delivery). Successful no-op.
			return nil
		}
		won = true
		switch st.Kind {
		case model.TransactionCharge:
			if st.PaymentID != nil {
				ext := result.ExternalID
				if err := uc.payments.UpdateStatus(ctx, tx, *st.PaymentID, model.PaymentStatusCompleted, &ext, &now); err != nil {
					return err
				}
				if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, *st.PaymentID, model.RegistrationProcessing, model.RegistrationPaid); err != nil {
					return err
				}
			}
		case model.TransactionRefund:
			if st.RefundID != nil {
				ext := result.ExternalID
				if err := uc.refunds.UpdateStatus(ctx, tx, *st.RefundID, model.RefundStatusCompleted, &ext, &now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if won {
		metrics.IncWebhookConfirm("applied")
		switch st.Kind {
		case model.TransactionRefund:
			kind := model.RefundPartial
			if st.Amounts.Net == st.Amounts.Gross {
				kind = model.RefundFull
			}
			uc.notify(adapter.Notification{
				UserID:  st.UserID,
				Subject: "Refund processed",
				Body:    model.RefundMessage(kind, st.Amounts.Net, st.Amounts.Gross),
			})
		default:
			uc.notify(adapter.Notification{UserID: st.UserID, Subject: "Payment confirmed", Body: "Your payment has been confirmed."})
		}
	} else {
		metrics.IncWebhookConfirm("noop")
	}
	return nil
}

func (uc *reconcilerUC) RollbackTransaction(ctx context.Context, stagedID, reason string) error {
	st, err := uc.staged.FindByID(ctx, repository.NoTX, stagedID)
	if err != nil {
		return err
	}
	if st.SyncStatus == model.SyncFailed || st.SyncStatus == model.SyncIgnore {
		return nil
	}

	return uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		expected := st.SyncStatus
		ok, err := uc.staged.UpdateSyncStatusIf(ctx, tx, st.ID, expected, model.SyncFailed, &reason)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch st.Kind {
		case model.TransactionCharge:
			if st.PaymentID != nil {
				if err := uc.payments.UpdateStatus(ctx, tx, *st.PaymentID, model.PaymentStatusFailed, nil, nil); err != nil {
					return err
				}
				// Any rows optimistically marked paid for this payment go
				// back to processing so the claim can be retried or expired.
				if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, *st.PaymentID, model.RegistrationPaid, model.RegistrationProcessing); err != nil {
					return err
				}
			}
		case model.TransactionRefund:
			if st.RefundID != nil {
				refund, err := uc.refunds.FindByID(ctx, tx, *st.RefundID)
				if err != nil {
					return err
				}
				if err := uc.refunds.UpdateStatus(ctx, tx, refund.ID, model.RefundStatusFailed, nil, nil); err != nil {
					return err
				}
				if _, err := uc.userRegs.UpdateStatusWhere(ctx, tx, refund.PaymentID, model.RegistrationRefunded, model.RegistrationPaid); err != nil {
					return err
				}
			}
		}
		uc.log.Warn().Str("staged_id", st.ID).Str("reason", reason).Msg("staged transaction rolled back")
		return nil
	})
}
