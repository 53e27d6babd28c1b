package model

import "club-registration/internal/domain"

// RegistrationCategory is a sub-division of a Registration ("Player",
// "Goalie", ...). Its membership requirement is independent of the parent
// registration's: holding either satisfies eligibility.
type RegistrationCategory struct {
	ID                   string
	RegistrationID       string
	Name                 string
	RequiredMembershipID *string
	Price                int64
	// MaxCapacity nil means unbounded.
	MaxCapacity *int
	SortOrder   int
}

func (c *RegistrationCategory) IsZero() bool { return c == nil || c.ID == "" }

func NewRegistrationCategory(id, registrationID, name string, price int64) (*RegistrationCategory, error) {
	if id == "" || registrationID == "" || name == "" || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &RegistrationCategory{ID: id, RegistrationID: registrationID, Name: name, Price: price}, nil
}

// IsOpenFor compares an occupancy count against the configured capacity.
// Occupancy must count every claimed slot (paid, processing and
// awaiting_payment rows), not only confirmed ones.
func (c *RegistrationCategory) IsOpenFor(occupancy int) bool {
	if c.MaxCapacity == nil {
		return true
	}
	return occupancy < *c.MaxCapacity
}
