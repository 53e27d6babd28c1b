package repository

import (
	"context"
	"time"

	"club-registration/internal/domain/model"
)

type RegistrationRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Registration) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Registration, error)
	ListBySeason(ctx context.Context, tx Tx, seasonID string) ([]*model.Registration, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

type CategoryRepository interface {
	Save(ctx context.Context, tx Tx, c *model.RegistrationCategory) error
	// Lock serializes writers on one category for the duration of tx. Slot
	// claims must take it before counting occupancy, or two claims can both
	// count under capacity and oversell the category. Requires a transaction.
	Lock(ctx context.Context, tx Tx, id string) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RegistrationCategory, error)
	ListByRegistration(ctx context.Context, tx Tx, registrationID string) ([]*model.RegistrationCategory, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

type UserRegistrationRepository interface {
	Save(ctx context.Context, tx Tx, ur *model.UserRegistration) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.UserRegistration, error)
	// FindPaidByUserAndRegistration returns the blocking row if one exists,
	// ErrNotFound otherwise. Refunded/failed rows are excluded in SQL, not
	// filtered post-hoc.
	FindPaidByUserAndRegistration(ctx context.Context, tx Tx, userID, registrationID string) (*model.UserRegistration, error)
	ListByRegistration(ctx context.Context, tx Tx, registrationID string) ([]*model.UserRegistration, error)
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.UserRegistration, error)
	// CountOccupying counts rows in the slot-claiming statuses per category.
	CountOccupying(ctx context.Context, tx Tx, categoryIDs []string) (map[string]int, error)
	UpdatePaymentStatus(ctx context.Context, tx Tx, id string, status model.RegistrationPaymentStatus) error
	// AttachPayment links rows to a payment and moves them to processing,
	// in one write, ahead of the external charge submission.
	AttachPayment(ctx context.Context, tx Tx, ids []string, paymentID string) error
	// UpdateStatusWhere flips every row matching (paymentID, from) to the
	// given status and returns the ids it touched, so a rollback can
	// restore exactly those rows.
	UpdateStatusWhere(ctx context.Context, tx Tx, paymentID string, from, to model.RegistrationPaymentStatus) ([]string, error)
	// ListAbandonedAwaiting returns awaiting_payment rows created before
	// the cutoff, for the slot expiry sweep.
	ListAbandonedAwaiting(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.UserRegistration, error)
}

type WaitlistRepository interface {
	Save(ctx context.Context, tx Tx, w *model.WaitlistEntry) error
	// ListActive returns non-removed entries for one (registration,
	// category) pair ordered by position.
	ListActive(ctx context.Context, tx Tx, registrationID, categoryID string) ([]*model.WaitlistEntry, error)
	// MaxPosition returns the highest position among non-removed entries,
	// zero when the list is empty.
	MaxPosition(ctx context.Context, tx Tx, registrationID, categoryID string) (int, error)
	Remove(ctx context.Context, tx Tx, id string, at time.Time) error
}
