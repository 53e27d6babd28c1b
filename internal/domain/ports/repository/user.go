package repository

import (
	"context"

	"club-registration/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	// SetPaymentMethod records a saved processor payment method and the
	// setup intent outcome in one write.
	SetPaymentMethod(ctx context.Context, tx Tx, userID string, paymentMethodID *string, status model.SetupIntentStatus) error
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, error)
}
