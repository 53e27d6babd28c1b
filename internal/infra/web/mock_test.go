//go:build !integration

package web

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/model"
	"club-registration/internal/usecase"
)

// --- Mock use cases (ports into the web layer) ---

type mockEligibilityUC struct {
	usecase.EligibilityUseCase // Embed interface for forward compatibility

	CanUserRegisterFunc func(ctx context.Context, userID, registrationID string) (usecase.RegistrationDecision, error)
}

func (m *mockEligibilityUC) CanUserRegister(ctx context.Context, userID, registrationID string) (usecase.RegistrationDecision, error) {
	return m.CanUserRegisterFunc(ctx, userID, registrationID)
}

type mockCapacityUC struct {
	usecase.CapacityUseCase

	OccupancyReportFunc func(ctx context.Context, registrationID string) ([]usecase.CategoryOccupancy, error)
	LeaveWaitlistFunc   func(ctx context.Context, entryID string) error
}

func (m *mockCapacityUC) OccupancyReport(ctx context.Context, registrationID string) ([]usecase.CategoryOccupancy, error) {
	return m.OccupancyReportFunc(ctx, registrationID)
}

func (m *mockCapacityUC) LeaveWaitlist(ctx context.Context, entryID string) error {
	return m.LeaveWaitlistFunc(ctx, entryID)
}

type mockRegistrationUC struct {
	usecase.RegistrationUseCase

	RegisterFunc     func(ctx context.Context, p usecase.RegisterParams) (*usecase.RegisterOutcome, error)
	ListBySeasonFunc func(ctx context.Context, seasonID string) ([]*model.Registration, error)
	CategoriesFunc   func(ctx context.Context, registrationID string) ([]*model.RegistrationCategory, error)
}

func (m *mockRegistrationUC) Register(ctx context.Context, p usecase.RegisterParams) (*usecase.RegisterOutcome, error) {
	return m.RegisterFunc(ctx, p)
}

func (m *mockRegistrationUC) ListBySeason(ctx context.Context, seasonID string) ([]*model.Registration, error) {
	return m.ListBySeasonFunc(ctx, seasonID)
}

func (m *mockRegistrationUC) Categories(ctx context.Context, registrationID string) ([]*model.RegistrationCategory, error) {
	return m.CategoriesFunc(ctx, registrationID)
}

type mockMembershipUC struct {
	usecase.MembershipUseCase

	ListTypesFunc func(ctx context.Context) ([]*model.Membership, error)
	SaveTypeFunc  func(ctx context.Context, m *model.Membership) error
	PurchaseFunc  func(ctx context.Context, p usecase.MembershipPurchase) (*model.UserMembership, error)
}

func (m *mockMembershipUC) ListTypes(ctx context.Context) ([]*model.Membership, error) {
	return m.ListTypesFunc(ctx)
}

func (m *mockMembershipUC) SaveType(ctx context.Context, mt *model.Membership) error {
	return m.SaveTypeFunc(ctx, mt)
}

func (m *mockMembershipUC) Purchase(ctx context.Context, p usecase.MembershipPurchase) (*model.UserMembership, error) {
	return m.PurchaseFunc(ctx, p)
}

type mockReconcilerUC struct {
	usecase.ReconcilerUseCase

	ExecuteRefundFunc func(ctx context.Context, p usecase.RefundParams) (*usecase.RefundOutcome, error)
}

func (m *mockReconcilerUC) ExecuteRefund(ctx context.Context, p usecase.RefundParams) (*usecase.RefundOutcome, error) {
	return m.ExecuteRefundFunc(ctx, p)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
