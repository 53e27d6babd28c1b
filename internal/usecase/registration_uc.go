package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/infra/metrics"
)

// Compile-time check
var _ RegistrationUseCase = (*registrationUC)(nil)

// Locker serializes registration attempts per user. Backed by Redis in
// production; the in-memory implementation serves tests.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RegisterParams is one registration attempt. Discount resolution (code ->
// percentage) happens upstream; this flow only applies it.
type RegisterParams struct {
	UserID         string
	RegistrationID string
	CategoryID     string
	DiscountPct    int64
	DiscountCode   *string
	// Donation is an optional additional amount collected with the fee.
	Donation int64
}

// RegisterOutcome is what route handlers render: either a confirmed
// registration, a waitlist entry, or a structured denial.
type RegisterOutcome struct {
	Decision       RegistrationDecision
	Registration   *model.UserRegistration
	Waitlisted     *model.WaitlistEntry
	Payment        *model.Payment
	EffectivePrice int64
}

type RegistrationUseCase interface {
	// Register runs the full guarded flow: eligibility, capacity claim or
	// waitlist routing, price computation, staging and charge.
	Register(ctx context.Context, p RegisterParams) (*RegisterOutcome, error)

	ListBySeason(ctx context.Context, seasonID string) ([]*model.Registration, error)
	Categories(ctx context.Context, registrationID string) ([]*model.RegistrationCategory, error)
}

type registrationUC struct {
	registrations repository.RegistrationRepository
	categories    repository.CategoryRepository
	userRegs      repository.UserRegistrationRepository
	users         repository.UserRepository
	eligibility   EligibilityUseCase
	capacity      CapacityUseCase
	reconciler    ReconcilerUseCase
	locker        Locker
	lockTTL       time.Duration
	log           *zerolog.Logger
}

func NewRegistrationUseCase(
	registrations repository.RegistrationRepository,
	categories repository.CategoryRepository,
	userRegs repository.UserRegistrationRepository,
	users repository.UserRepository,
	eligibility EligibilityUseCase,
	capacity CapacityUseCase,
	reconciler ReconcilerUseCase,
	locker Locker,
	logger *zerolog.Logger,
) *registrationUC {
	compLog := logger.With().Str("component", "RegistrationUC").Logger()
	return &registrationUC{
		registrations: registrations,
		categories:    categories,
		userRegs:      userRegs,
		users:         users,
		eligibility:   eligibility,
		capacity:      capacity,
		reconciler:    reconciler,
		locker:        locker,
		lockTTL:       30 * time.Second,
		log:           &compLog,
	}
}

func (uc *registrationUC) ListBySeason(ctx context.Context, seasonID string) ([]*model.Registration, error) {
	return uc.registrations.ListBySeason(ctx, repository.NoTX, seasonID)
}

func (uc *registrationUC) Categories(ctx context.Context, registrationID string) ([]*model.RegistrationCategory, error) {
	return uc.categories.ListByRegistration(ctx, repository.NoTX, registrationID)
}

func (uc *registrationUC) Register(ctx context.Context, p RegisterParams) (*RegisterOutcome, error) {
	if p.UserID == "" || p.RegistrationID == "" || p.CategoryID == "" || p.Donation < 0 {
		return nil, domain.ErrInvalidArgument
	}

	// One attempt per user at a time; the data layer's constraints remain
	// the real safety net.
	lockKey := "reg-lock:" + p.UserID
	token, err := uc.locker.TryLock(ctx, lockKey, uc.lockTTL)
	if err != nil {
		return nil, domain.ErrLockNotAcquired
	}
	defer func() {
		if err := uc.locker.Unlock(ctx, lockKey, token); err != nil {
			uc.log.Warn().Err(err).Str("user_id", p.UserID).Msg("registration lock unlock failed")
		}
	}()

	cat, err := uc.categories.FindByID(ctx, repository.NoTX, p.CategoryID)
	if err != nil {
		return nil, err
	}
	amounts, err := model.ComputeAmounts(cat.Price, p.DiscountPct)
	if err != nil {
		return nil, err
	}
	effective := amounts.Net + p.Donation

	// Price is known here, so payment-method validation is skipped for
	// fully discounted attempts (the waitlist-with-discount-code flow
	// depends on this ordering).
	decision, err := uc.eligibility.ValidateRegistrationEligibility(ctx, p.UserID, p.RegistrationID, ValidateOptions{
		EffectivePrice: effective,
	})
	if err != nil {
		return nil, err
	}
	if !decision.CanRegister {
		metrics.IncRegistrationDenied(string(decision.Reason))
		return &RegisterOutcome{Decision: decision, EffectivePrice: effective}, nil
	}

	catRes, err := uc.eligibility.CheckCategoryEligibility(ctx, p.UserID, p.RegistrationID, p.CategoryID)
	if err != nil {
		return nil, err
	}
	if !catRes.Eligible {
		metrics.IncRegistrationDenied(string(ReasonIneligibleMembership))
		return &RegisterOutcome{
			Decision:       deny(ReasonIneligibleMembership, "An active membership is required for this category"),
			EffectivePrice: effective,
		}, nil
	}

	claimed, err := uc.capacity.ClaimSlot(ctx, p.UserID, p.RegistrationID, p.CategoryID, cat.Price)
	if errors.Is(err, domain.ErrCategoryFull) {
		entry, werr := uc.capacity.JoinWaitlist(ctx, p.UserID, p.RegistrationID, p.CategoryID)
		if werr != nil {
			return nil, werr
		}
		metrics.IncRegistrationDenied(string(ReasonCategoryFull))
		return &RegisterOutcome{
			Decision:       deny(ReasonCategoryFull, fmt.Sprintf("Category is full, you are #%d on the waitlist", entry.Position)),
			Waitlisted:     entry,
			EffectivePrice: effective,
		}, nil
	}
	if errors.Is(err, domain.ErrDuplicateRegistration) {
		// Lost the commit-time race; same reason code as the pre-flight
		// check.
		return &RegisterOutcome{
			Decision:       deny(ReasonDuplicateRegistration, "You are already registered for this event"),
			EffectivePrice: effective,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if p.DiscountCode != nil {
		claimed.DiscountCode = p.DiscountCode
	}

	reg, err := uc.registrations.FindByID(ctx, repository.NoTX, p.RegistrationID)
	if err != nil {
		return nil, err
	}
	items := []model.LineItem{{
		Kind:           model.LineItemRegistration,
		Description:    fmt.Sprintf("%s / %s", reg.Name, cat.Name),
		Amount:         amounts.Net,
		AccountingCode: registrationAccountingCode(reg, cat),
	}}
	if p.Donation > 0 {
		items = append(items, model.LineItem{
			Kind:        model.LineItemDonation,
			Description: "Donation",
			Amount:      p.Donation,
		})
	}
	var codes []string
	if p.DiscountCode != nil {
		codes = append(codes, *p.DiscountCode)
	}
	chargeAmounts := model.Amounts{Gross: amounts.Gross + p.Donation, Discount: amounts.Discount, Net: effective}

	st, err := uc.reconciler.StageTransaction(ctx, model.TransactionCharge, p.UserID, chargeAmounts, items, codes)
	if err != nil {
		// Staging never happened, so there is no external state to unwind;
		// just release the claimed slot.
		uc.releaseAfterFailure(ctx, claimed.ID)
		return nil, err
	}

	user, err := uc.users.FindByID(ctx, repository.NoTX, p.UserID)
	if err != nil {
		uc.releaseAfterFailure(ctx, claimed.ID)
		return nil, err
	}
	pm := ""
	if user.StripePaymentMethodID != nil {
		pm = *user.StripePaymentMethodID
	}

	outcome, err := uc.reconciler.ExecuteCharge(ctx, st.ID, p.UserID, pm, []string{claimed.ID})
	if err != nil {
		// A pending settlement means the member may already have been
		// charged; the slot stays claimed until the webhook or the sweep
		// resolves the outcome.
		if !errors.Is(err, domain.ErrSettlementPending) {
			uc.releaseAfterFailure(ctx, claimed.ID)
		}
		return nil, err
	}

	claimed.PaymentStatus = model.RegistrationPaid
	claimed.AmountPaid = effective
	claimed.PaymentID = &outcome.Payment.ID
	metrics.IncRegistrationCompleted(string(reg.Type))
	uc.log.Info().
		Str("user_id", p.UserID).
		Str("registration_id", p.RegistrationID).
		Str("category_id", p.CategoryID).
		Int64("amount", effective).
		Msg("registration completed")
	return &RegisterOutcome{
		Decision:       allow(),
		Registration:   claimed,
		Payment:        outcome.Payment,
		EffectivePrice: effective,
	}, nil
}

func (uc *registrationUC) releaseAfterFailure(ctx context.Context, userRegistrationID string) {
	if err := uc.capacity.ReleaseSlot(ctx, userRegistrationID); err != nil {
		uc.log.Error().Err(err).Str("user_registration_id", userRegistrationID).Msg("failed to release claimed slot")
	}
}

// registrationAccountingCode prefers the alternate pool's code when the
// registration runs one and the category has no price of its own.
func registrationAccountingCode(r *model.Registration, c *model.RegistrationCategory) string {
	if r.Alternate.Enabled && c.Price == 0 && r.Alternate.AccountingCode != "" {
		return r.Alternate.AccountingCode
	}
	return r.AccountingCode
}
