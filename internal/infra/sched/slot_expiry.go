package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/usecase"
)

// SlotExpiryWorker releases awaiting_payment slots whose owner abandoned
// checkout. Each release frees capacity immediately; the sweep is idempotent
// so overlapping runs are harmless.
type SlotExpiryWorker struct {
	capacity       usecase.CapacityUseCase
	userRegs       repository.UserRegistrationRepository
	interval       time.Duration
	abandonedAfter time.Duration
	log            *zerolog.Logger
}

func NewSlotExpiryWorker(
	capacity usecase.CapacityUseCase,
	userRegs repository.UserRegistrationRepository,
	interval, abandonedAfter time.Duration,
	logger *zerolog.Logger,
) *SlotExpiryWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if abandonedAfter <= 0 {
		abandonedAfter = time.Hour
	}
	compLog := logger.With().Str("component", "SlotExpiryWorker").Logger()
	return &SlotExpiryWorker{
		capacity:       capacity,
		userRegs:       userRegs,
		interval:       interval,
		abandonedAfter: abandonedAfter,
		log:            &compLog,
	}
}

func (w *SlotExpiryWorker) Start(ctx context.Context) {
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

func (w *SlotExpiryWorker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.abandonedAfter)
	abandoned, err := w.userRegs.ListAbandonedAwaiting(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list abandoned slots failed")
		return
	}
	released := 0
	for _, ur := range abandoned {
		if err := w.capacity.ReleaseSlot(ctx, ur.ID); err != nil {
			w.log.Error().Err(err).Str("user_registration_id", ur.ID).Msg("slot release failed")
			continue
		}
		released++
	}
	if released > 0 {
		w.log.Info().Int("count", released).Msg("abandoned slots released")
	}
}
