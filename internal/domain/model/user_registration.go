package model

import (
	"time"

	"club-registration/internal/domain"
)

type RegistrationPaymentStatus string

const (
	RegistrationAwaitingPayment RegistrationPaymentStatus = "awaiting_payment"
	RegistrationProcessing      RegistrationPaymentStatus = "processing"
	RegistrationPaid            RegistrationPaymentStatus = "paid"
	RegistrationFailed          RegistrationPaymentStatus = "failed"
	RegistrationRefunded        RegistrationPaymentStatus = "refunded"
)

// OccupyingStatuses are the payment statuses that claim a category slot.
// Counting awaiting_payment/processing rows prevents overselling while a
// payment is in flight; abandoned claims are released by the slot expiry
// sweep, not by the occupancy check.
var OccupyingStatuses = []RegistrationPaymentStatus{
	RegistrationPaid, RegistrationProcessing, RegistrationAwaitingPayment,
}

// UserRegistration is a member's registration instance for one registration
// and category. At most one paid row may exist per (user, registration);
// refunded and failed rows never block re-registration.
type UserRegistration struct {
	ID              string
	UserID          string
	RegistrationID  string
	CategoryID      string
	PaymentStatus   RegistrationPaymentStatus
	AmountPaid      int64
	RegistrationFee int64
	DiscountCode    *string
	PaymentID       *string
	RefundedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewUserRegistration(id, userID, registrationID, categoryID string, fee int64) (*UserRegistration, error) {
	if id == "" || userID == "" || registrationID == "" || categoryID == "" || fee < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &UserRegistration{
		ID:              id,
		UserID:          userID,
		RegistrationID:  registrationID,
		CategoryID:      categoryID,
		PaymentStatus:   RegistrationAwaitingPayment,
		RegistrationFee: fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Blocks reports whether this row blocks a new registration attempt for the
// same (user, registration) pair.
func (ur *UserRegistration) Blocks() bool {
	return ur != nil && ur.PaymentStatus == RegistrationPaid
}

// Occupies reports whether this row claims a category slot.
func (ur *UserRegistration) Occupies() bool {
	if ur == nil {
		return false
	}
	for _, s := range OccupyingStatuses {
		if ur.PaymentStatus == s {
			return true
		}
	}
	return false
}
