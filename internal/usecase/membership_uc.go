package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

// Compile-time check
var _ MembershipUseCase = (*membershipUC)(nil)

// MembershipPurchase describes one membership buy: monthly or annual term,
// with an optional percentage discount (financial assistance).
type MembershipPurchase struct {
	UserID       string
	MembershipID string
	Monthly      bool
	DiscountPct  int64
	DiscountCode *string
}

type MembershipUseCase interface {
	ListTypes(ctx context.Context) ([]*model.Membership, error)
	SaveType(ctx context.Context, m *model.Membership) error
	DeleteType(ctx context.Context, id string) error

	// ActiveMemberships returns the rows granting entitlement right now.
	ActiveMemberships(ctx context.Context, userID string) ([]*model.UserMembership, error)

	// MembershipWindows returns the consolidated "active until" window per
	// membership type for presentation.
	MembershipWindows(ctx context.Context, userID string) (map[string]model.MembershipWindow, error)

	// Purchase stages and charges a membership buy through the reconciler
	// and marks the new row paid on success.
	Purchase(ctx context.Context, p MembershipPurchase) (*model.UserMembership, error)
}

type membershipUC struct {
	memberships repository.MembershipRepository
	userMems    repository.UserMembershipRepository
	users       repository.UserRepository
	reconciler  ReconcilerUseCase
	tm          repository.TransactionManager
	now         func() time.Time
	log         *zerolog.Logger
}

func NewMembershipUseCase(
	memberships repository.MembershipRepository,
	userMems repository.UserMembershipRepository,
	users repository.UserRepository,
	reconciler ReconcilerUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *membershipUC {
	compLog := logger.With().Str("component", "MembershipUC").Logger()
	return &membershipUC{
		memberships: memberships,
		userMems:    userMems,
		users:       users,
		reconciler:  reconciler,
		tm:          tm,
		now:         time.Now,
		log:         &compLog,
	}
}

func (uc *membershipUC) ListTypes(ctx context.Context) ([]*model.Membership, error) {
	return uc.memberships.ListAll(ctx, repository.NoTX)
}

func (uc *membershipUC) SaveType(ctx context.Context, m *model.Membership) error {
	if m.IsZero() {
		return domain.ErrInvalidArgument
	}
	return uc.memberships.Save(ctx, repository.NoTX, m)
}

func (uc *membershipUC) DeleteType(ctx context.Context, id string) error {
	return uc.memberships.Delete(ctx, repository.NoTX, id)
}

func (uc *membershipUC) ActiveMemberships(ctx context.Context, userID string) ([]*model.UserMembership, error) {
	rows, err := uc.userMems.ListByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return model.ActiveMemberships(rows, uc.now()), nil
}

func (uc *membershipUC) MembershipWindows(ctx context.Context, userID string) (map[string]model.MembershipWindow, error) {
	rows, err := uc.userMems.ListByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return model.ConsolidateWindows(rows), nil
}

func (uc *membershipUC) Purchase(ctx context.Context, p MembershipPurchase) (*model.UserMembership, error) {
	mem, err := uc.memberships.FindByID(ctx, repository.NoTX, p.MembershipID)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.FindByID(ctx, repository.NoTX, p.UserID)
	if err != nil {
		return nil, err
	}
	if p.Monthly && !mem.MonthlyAvailable {
		return nil, domain.ErrInvalidArgument
	}

	base := mem.AnnualPrice
	months := 12
	if p.Monthly {
		base = mem.MonthlyPrice
		months = 1
	}
	if p.DiscountPct > 0 && !mem.DiscountEligible {
		return nil, domain.ErrInvalidArgument
	}
	amounts, err := model.ComputeAmounts(base, p.DiscountPct)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	um := &model.UserMembership{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		MembershipID:  p.MembershipID,
		ValidFrom:     now,
		ValidUntil:    now.AddDate(0, months, 0),
		PaymentStatus: model.MembershipPaymentPending,
		AmountPaid:    amounts.Net,
		CreatedAt:     now,
	}
	if err := uc.userMems.Save(ctx, repository.NoTX, um); err != nil {
		return nil, err
	}

	var codes []string
	if p.DiscountCode != nil {
		codes = append(codes, *p.DiscountCode)
	}
	items := []model.LineItem{{
		Kind:           model.LineItemMembership,
		Description:    fmt.Sprintf("%s membership", mem.Name),
		Amount:         amounts.Net,
		AccountingCode: mem.AccountingCode,
	}}
	st, err := uc.reconciler.StageTransaction(ctx, model.TransactionCharge, p.UserID, amounts, items, codes)
	if err != nil {
		return nil, err
	}

	pm := ""
	if user.StripePaymentMethodID != nil {
		pm = *user.StripePaymentMethodID
	}
	outcome, err := uc.reconciler.ExecuteCharge(ctx, st.ID, p.UserID, pm, nil)
	if err != nil {
		if ferr := uc.userMems.UpdatePaymentStatus(ctx, repository.NoTX, um.ID, model.MembershipPaymentFailed); ferr != nil {
			uc.log.Error().Err(ferr).Str("user_membership_id", um.ID).Msg("failed to mark membership purchase failed")
		}
		return nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		um.PaymentStatus = model.MembershipPaymentPaid
		um.PaymentIntentID = outcome.Payment.PaymentIntentID
		return uc.userMems.Save(ctx, tx, um)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", p.UserID).Str("membership_id", p.MembershipID).Int64("amount", amounts.Net).Msg("membership purchased")
	return um, nil
}
