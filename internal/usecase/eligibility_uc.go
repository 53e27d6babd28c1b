package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"club-registration/internal/domain"
	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
)

// Compile-time check
var _ EligibilityUseCase = (*eligibilityUC)(nil)

// DenialReason is the machine-readable code route handlers map to UI.
type DenialReason string

const (
	ReasonDuplicateRegistration DenialReason = "duplicate_registration"
	ReasonIneligibleMembership  DenialReason = "ineligible_membership"
	ReasonInvalidPaymentMethod  DenialReason = "invalid_payment_method"
	ReasonCategoryFull          DenialReason = "category_full"
	ReasonRegistrationClosed    DenialReason = "registration_closed"
)

// RegistrationDecision is a structured verdict, not an error: callers render
// different UI per reason, so denials propagate as data.
type RegistrationDecision struct {
	CanRegister bool
	Reason      DenialReason
	Message     string
}

func allow() RegistrationDecision { return RegistrationDecision{CanRegister: true} }

func deny(reason DenialReason, msg string) RegistrationDecision {
	return RegistrationDecision{CanRegister: false, Reason: reason, Message: msg}
}

// PaymentMethodPolicy selects between the two validation rules observed in
// production: strict additionally requires the setup intent to have
// succeeded, lenient accepts any stored payment method id. Configurable
// until product settles the question.
type PaymentMethodPolicy string

const (
	PaymentMethodStrict  PaymentMethodPolicy = "strict"
	PaymentMethodLenient PaymentMethodPolicy = "lenient"
)

// ValidateOptions control the conditional parts of eligibility validation.
// EffectivePrice lets callers that already ran discount computation skip
// payment-method validation for free registrations; RequirePaymentMethod
// forces the check regardless of price.
type ValidateOptions struct {
	RequirePaymentMethod bool
	// EffectivePrice < 0 means "unknown": the payment method check runs.
	EffectivePrice int64
}

type EligibilityUseCase interface {
	// CanUserRegister is the combined convenience check: duplicate first,
	// then membership eligibility, then payment method (price unknown, so
	// the payment-method check always runs).
	CanUserRegister(ctx context.Context, userID, registrationID string) (RegistrationDecision, error)

	// ValidateRegistrationEligibility runs the same checks with caller
	// control over payment-method sequencing. Duplicate-registration always
	// runs first; that ordering is part of the contract.
	ValidateRegistrationEligibility(ctx context.Context, userID, registrationID string, opts ValidateOptions) (RegistrationDecision, error)

	// CheckCategoryEligibility evaluates the OR of registration-level and
	// category-level membership requirements for one category.
	CheckCategoryEligibility(ctx context.Context, userID, registrationID, categoryID string) (model.EligibilityResult, error)

	// CheckPaymentMethod is the standalone payment-method validation, for
	// callers that sequence it themselves (waitlist-with-discount flows).
	CheckPaymentMethod(ctx context.Context, userID string) (RegistrationDecision, error)
}

type eligibilityUC struct {
	users         repository.UserRepository
	registrations repository.RegistrationRepository
	categories    repository.CategoryRepository
	userRegs      repository.UserRegistrationRepository
	memberships   repository.MembershipRepository
	userMems      repository.UserMembershipRepository
	policy        PaymentMethodPolicy
	now           func() time.Time
	log           *zerolog.Logger
}

func NewEligibilityUseCase(
	users repository.UserRepository,
	registrations repository.RegistrationRepository,
	categories repository.CategoryRepository,
	userRegs repository.UserRegistrationRepository,
	memberships repository.MembershipRepository,
	userMems repository.UserMembershipRepository,
	policy PaymentMethodPolicy,
	logger *zerolog.Logger,
) *eligibilityUC {
	if policy == "" {
		policy = PaymentMethodLenient
	}
	compLog := logger.With().Str("component", "EligibilityUC").Logger()
	return &eligibilityUC{
		users:         users,
		registrations: registrations,
		categories:    categories,
		userRegs:      userRegs,
		memberships:   memberships,
		userMems:      userMems,
		policy:        policy,
		now:           time.Now,
		log:           &compLog,
	}
}

func (uc *eligibilityUC) CanUserRegister(ctx context.Context, userID, registrationID string) (RegistrationDecision, error) {
	return uc.ValidateRegistrationEligibility(ctx, userID, registrationID, ValidateOptions{
		RequirePaymentMethod: true,
		EffectivePrice:       -1,
	})
}

func (uc *eligibilityUC) ValidateRegistrationEligibility(ctx context.Context, userID, registrationID string, opts ValidateOptions) (RegistrationDecision, error) {
	if userID == "" || registrationID == "" {
		return RegistrationDecision{}, domain.ErrInvalidArgument
	}

	// Duplicate-registration check always runs first. The SQL excludes
	// refunded/failed rows by construction.
	existing, err := uc.userRegs.FindPaidByUserAndRegistration(ctx, repository.NoTX, userID, registrationID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return RegistrationDecision{}, err
	}
	if existing != nil {
		return deny(ReasonDuplicateRegistration, "You are already registered for this event"), nil
	}

	reg, err := uc.registrations.FindByID(ctx, repository.NoTX, registrationID)
	if err != nil {
		return RegistrationDecision{}, err
	}
	if !reg.AcceptsRegistrations(uc.now()) {
		return deny(ReasonRegistrationClosed, "Registration is not currently open"), nil
	}

	res, err := uc.evaluate(ctx, userID, reg.RequiredMembershipID, nil)
	if err != nil {
		return RegistrationDecision{}, err
	}
	if !res.Eligible {
		msg, err := uc.denialMessage(ctx, res.UnmetRequirements)
		if err != nil {
			return RegistrationDecision{}, err
		}
		return deny(ReasonIneligibleMembership, msg), nil
	}

	// Payment-method validation is skipped when the caller already knows
	// the effective price is zero, so a fully discounted registration never
	// bounces on a missing card.
	needPM := opts.RequirePaymentMethod || opts.EffectivePrice != 0
	if !needPM {
		return allow(), nil
	}
	return uc.CheckPaymentMethod(ctx, userID)
}

func (uc *eligibilityUC) CheckCategoryEligibility(ctx context.Context, userID, registrationID, categoryID string) (model.EligibilityResult, error) {
	reg, err := uc.registrations.FindByID(ctx, repository.NoTX, registrationID)
	if err != nil {
		return model.EligibilityResult{}, err
	}
	cat, err := uc.categories.FindByID(ctx, repository.NoTX, categoryID)
	if err != nil {
		return model.EligibilityResult{}, err
	}
	if cat.RegistrationID != reg.ID {
		return model.EligibilityResult{}, domain.ErrInvalidArgument
	}
	return uc.evaluate(ctx, userID, reg.RequiredMembershipID, cat.RequiredMembershipID)
}

func (uc *eligibilityUC) CheckPaymentMethod(ctx context.Context, userID string) (RegistrationDecision, error) {
	u, err := uc.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return RegistrationDecision{}, err
	}
	if !u.HasPaymentMethod() {
		return deny(ReasonInvalidPaymentMethod, "No saved payment method on file"), nil
	}
	if uc.policy == PaymentMethodStrict && u.SetupIntentStatus != model.SetupIntentSucceeded {
		return deny(ReasonInvalidPaymentMethod, "Payment method setup has not completed"), nil
	}
	return allow(), nil
}

func (uc *eligibilityUC) evaluate(ctx context.Context, userID string, regMembershipID, catMembershipID *string) (model.EligibilityResult, error) {
	if regMembershipID == nil && catMembershipID == nil {
		return model.CheckMembershipEligibility(nil, nil, nil), nil
	}
	rows, err := uc.userMems.ListByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return model.EligibilityResult{}, err
	}
	active := model.ActiveMemberships(rows, uc.now())
	return model.CheckMembershipEligibility(regMembershipID, catMembershipID, active), nil
}

// denialMessage resolves membership names for the member-facing message.
// The core decision stays name-agnostic.
func (uc *eligibilityUC) denialMessage(ctx context.Context, unmetIDs []string) (string, error) {
	if len(unmetIDs) == 0 {
		return "An active membership is required to register", nil
	}
	mems, err := uc.memberships.FindByIDs(ctx, repository.NoTX, unmetIDs)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	names := make([]string, 0, len(mems))
	for _, m := range mems {
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return "An active membership is required to register", nil
	}
	return fmt.Sprintf("An active membership is required to register: %s", strings.Join(names, " or ")), nil
}
