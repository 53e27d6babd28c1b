package notify

import (
	"context"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/ports/adapter"
	"club-registration/internal/infra/worker"
)

// Dispatcher fans notifications out to a Notifier through a bounded worker
// pool. Enqueueing never blocks and never fails the caller: when the queue
// is saturated the notification is dropped and logged.
type Dispatcher struct {
	notifier adapter.Notifier
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewDispatcher(notifier adapter.Notifier, workers int, logger *zerolog.Logger) *Dispatcher {
	compLog := logger.With().Str("component", "NotifyDispatcher").Logger()
	return &Dispatcher{
		notifier: notifier,
		pool:     worker.NewPool(workers),
		log:      &compLog,
	}
}

func (d *Dispatcher) Start(ctx context.Context) { d.pool.Start(ctx) }
func (d *Dispatcher) Stop()                     { d.pool.Stop() }

// Enqueue satisfies usecase.NotifyFunc.
func (d *Dispatcher) Enqueue(n adapter.Notification) {
	err := d.pool.Submit(func(ctx context.Context) error {
		if err := d.notifier.Send(ctx, n); err != nil {
			d.log.Warn().Err(err).Str("user_id", n.UserID).Str("subject", n.Subject).Msg("notification delivery failed")
		}
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Str("user_id", n.UserID).Msg("notification dropped")
	}
}
