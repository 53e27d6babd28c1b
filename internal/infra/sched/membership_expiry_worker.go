package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/adapter"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/usecase"
)

// MembershipExpiryWorker sends expiry notices for paid memberships whose
// window ends within the configured horizon.
type MembershipExpiryWorker struct {
	userMems    repository.UserMembershipRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	notify      usecase.NotifyFunc
	interval    time.Duration
	windowDays  int
	log         *zerolog.Logger
}

func NewMembershipExpiryWorker(
	userMems repository.UserMembershipRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	notify usecase.NotifyFunc,
	interval time.Duration,
	windowDays int,
	logger *zerolog.Logger,
) *MembershipExpiryWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	compLog := logger.With().Str("component", "MembershipExpiryWorker").Logger()
	return &MembershipExpiryWorker{
		userMems:    userMems,
		memberships: memberships,
		users:       users,
		notify:      notify,
		interval:    interval,
		windowDays:  windowDays,
		log:         &compLog,
	}
}

func (w *MembershipExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting membership expiry worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping membership expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *MembershipExpiryWorker) runCheck(ctx context.Context) {
	expiring, err := w.userMems.ListExpiringWithin(ctx, repository.NoTX, w.windowDays)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry check failed")
		return
	}
	sent := 0
	for _, um := range expiring {
		if w.notifyOne(ctx, um) {
			sent++
		}
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry notices sent")
	}
}

func (w *MembershipExpiryWorker) notifyOne(ctx context.Context, um *model.UserMembership) bool {
	user, err := w.users.FindByID(ctx, repository.NoTX, um.UserID)
	if err != nil {
		w.log.Warn().Err(err).Str("user_id", um.UserID).Msg("user lookup failed for expiry notice")
		return false
	}
	name := um.MembershipID
	if m, err := w.memberships.FindByID(ctx, repository.NoTX, um.MembershipID); err == nil {
		name = m.Name
	}
	w.notify(adapter.Notification{
		UserID:  user.ID,
		Email:   user.Email,
		Subject: "Your membership is expiring soon",
		Body:    fmt.Sprintf("Your %s membership expires on %s. Renew to keep registering for events.", name, um.ValidUntil.Format("January 2, 2006")),
	})
	return true
}
