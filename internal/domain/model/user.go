package model

import (
	"time"

	"club-registration/internal/domain"

	"github.com/google/uuid"
)

type SetupIntentStatus string

const (
	SetupIntentNone      SetupIntentStatus = "none"
	SetupIntentPending   SetupIntentStatus = "pending"
	SetupIntentSucceeded SetupIntentStatus = "succeeded"
)

// User is a domain entity representing an association member account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsLGBTQ     *bool // optional survey answers, never required
	IsGoalie    *bool
	IsAdmin     bool
	// Saved payment method on the processor side, nil until the member
	// completes payment setup.
	StripePaymentMethodID *string
	SetupIntentStatus     SetupIntentStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewUser(id, email, displayName string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" || displayName == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:                id,
		Email:             email,
		DisplayName:       displayName,
		SetupIntentStatus: SetupIntentNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// HasPaymentMethod reports whether a payment method reference is stored.
// Whether that alone is enough to charge depends on the configured policy
// (see usecase.PaymentMethodPolicy).
func (u *User) HasPaymentMethod() bool {
	return u != nil && u.StripePaymentMethodID != nil && *u.StripePaymentMethodID != ""
}
