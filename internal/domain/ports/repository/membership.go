package repository

import (
	"context"

	"club-registration/internal/domain/model"
)

// MembershipRepository is the port for admin-managed membership types.
type MembershipRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Membership) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Membership, error)
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Membership, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Membership, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

// UserMembershipRepository is the port for purchased membership instances.
type UserMembershipRepository interface {
	Save(ctx context.Context, tx Tx, um *model.UserMembership) error
	// ListByUser returns all rows for a user regardless of status; callers
	// filter with model.ActiveMemberships / ConsolidateWindows.
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.UserMembership, error)
	UpdatePaymentStatus(ctx context.Context, tx Tx, id string, status model.MembershipPaymentStatus) error
	// ListExpiringWithin returns paid rows whose consolidated window ends
	// within the given number of days, for expiry notices.
	ListExpiringWithin(ctx context.Context, tx Tx, days int) ([]*model.UserMembership, error)
}
