package model

import (
	"time"

	"club-registration/internal/domain"
)

// Membership is a purchasable entitlement type managed by admins.
// Prices are integer cents to avoid float rounding.
type Membership struct {
	ID               string
	Name             string
	MonthlyPrice     int64
	AnnualPrice      int64
	AccountingCode   string
	DiscountEligible bool
	MonthlyAvailable bool
	CreatedAt        time.Time
}

func (m *Membership) IsZero() bool { return m == nil || m.ID == "" }

// NewMembership validates and constructs a membership type.
func NewMembership(id, name, accountingCode string, monthlyPrice, annualPrice int64) (*Membership, error) {
	if id == "" || name == "" || accountingCode == "" || annualPrice < 0 || monthlyPrice < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Membership{
		ID:             id,
		Name:           name,
		AccountingCode: accountingCode,
		MonthlyPrice:   monthlyPrice,
		AnnualPrice:    annualPrice,
		CreatedAt:      time.Now(),
	}, nil
}
