package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/adapter"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/usecase"
)

// IntentStatusQuerier looks up the processor-side status of a payment
// intent. The Stripe gateway satisfies it.
type IntentStatusQuerier interface {
	GetPaymentIntent(ctx context.Context, intentID string) (adapter.ChargeResult, error)
}

// PaymentReconciler periodically scans for staged transactions stuck in
// pending and settles them by querying the processor directly. This covers
// webhooks that never arrived and crashes between submission and finalize.
type PaymentReconciler struct {
	uc         usecase.ReconcilerUseCase
	staged     repository.StagedTransactionRepository
	payments   repository.PaymentRepository
	querier    IntentStatusQuerier
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending record must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	uc usecase.ReconcilerUseCase,
	staged repository.StagedTransactionRepository,
	payments repository.PaymentRepository,
	querier IntentStatusQuerier,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		staged:     staged,
		payments:   payments,
		querier:    querier,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &compLog,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.staged.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending staged records failed")
		return
	}
	for _, st := range pending {
		w.settle(ctx, st)
	}
}

// settle resolves one stuck record. Charges are settled against the intent
// status; refunds without a processor id are rolled back since the
// submission never completed.
func (w *PaymentReconciler) settle(ctx context.Context, st *model.StagedTransaction) {
	if st.Kind == model.TransactionRefund {
		if err := w.uc.RollbackTransaction(ctx, st.ID, "refund submission never completed"); err != nil {
			w.log.Error().Err(err).Str("staged_id", st.ID).Msg("rollback of stale refund failed")
		}
		return
	}

	if st.PaymentID == nil {
		if err := w.uc.RollbackTransaction(ctx, st.ID, "no payment linked"); err != nil {
			w.log.Error().Err(err).Str("staged_id", st.ID).Msg("rollback of unlinked charge failed")
		}
		return
	}
	p, err := w.payments.FindByID(ctx, repository.NoTX, *st.PaymentID)
	if err != nil {
		w.log.Error().Err(err).Str("staged_id", st.ID).Msg("linked payment lookup failed")
		return
	}
	if p.PaymentIntentID == nil {
		if st.SubmittedAt != nil {
			// The charge reached the processor but the intent id was never
			// written back. The outcome is unknown, so only the webhook may
			// settle it.
			w.log.Warn().Str("staged_id", st.ID).Msg("submitted charge without recorded intent, leaving for webhook")
			return
		}
		// Crash before the gateway call; nothing was ever charged.
		if err := w.uc.RollbackTransaction(ctx, st.ID, "charge was never submitted"); err != nil {
			w.log.Error().Err(err).Str("staged_id", st.ID).Msg("rollback of unsubmitted charge failed")
		}
		return
	}

	res, err := w.querier.GetPaymentIntent(ctx, *p.PaymentIntentID)
	if err != nil {
		w.log.Warn().Err(err).Str("staged_id", st.ID).Msg("intent status query failed, will retry next sweep")
		return
	}
	// "processing" and "requires_action" are not terminal; leave those
	// for a later sweep or the webhook.
	switch res.Status {
	case "processing", "requires_action", "requires_confirmation":
		return
	}
	confirmation := usecase.ProcessorResult{
		Succeeded:  res.Status == "succeeded",
		ExternalID: res.PaymentIntentID,
		Reason:     "reconciled from intent status " + res.Status,
	}
	if err := w.uc.ConfirmTransaction(ctx, st.ID, confirmation); err != nil {
		w.log.Error().Err(err).Str("staged_id", st.ID).Msg("reconcile confirm failed")
		return
	}
	w.log.Info().Str("staged_id", st.ID).Str("status", res.Status).Msg("stale staged transaction settled")
}
