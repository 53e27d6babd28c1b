package model

import (
	"time"

	"club-registration/internal/domain"
)

// WaitlistEntry records join order within a full category. Position is an
// ordering key, not a dense index: removal leaves gaps and never renumbers
// the remaining entries.
type WaitlistEntry struct {
	ID             string
	UserID         string
	RegistrationID string
	CategoryID     string
	Position       int
	JoinedAt       time.Time
	RemovedAt      *time.Time
}

func NewWaitlistEntry(id, userID, registrationID, categoryID string, position int) (*WaitlistEntry, error) {
	if id == "" || userID == "" || registrationID == "" || categoryID == "" || position < 1 {
		return nil, domain.ErrInvalidArgument
	}
	return &WaitlistEntry{
		ID:             id,
		UserID:         userID,
		RegistrationID: registrationID,
		CategoryID:     categoryID,
		Position:       position,
		JoinedAt:       time.Now(),
	}, nil
}

func (w *WaitlistEntry) IsRemoved() bool { return w != nil && w.RemovedAt != nil }

// NextPosition computes the position for a newly joining entry: max position
// among non-removed entries plus one, starting at 1 on an empty list.
func NextPosition(entries []*WaitlistEntry) int {
	max := 0
	for _, e := range entries {
		if e.IsRemoved() {
			continue
		}
		if e.Position > max {
			max = e.Position
		}
	}
	return max + 1
}
