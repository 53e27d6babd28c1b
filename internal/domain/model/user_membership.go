package model

import (
	"sort"
	"time"
)

type MembershipPaymentStatus string

const (
	MembershipPaymentPending  MembershipPaymentStatus = "pending"
	MembershipPaymentPaid     MembershipPaymentStatus = "paid"
	MembershipPaymentFailed   MembershipPaymentStatus = "failed"
	MembershipPaymentRefunded MembershipPaymentStatus = "refunded"
)

// UserMembership is a purchased membership instance with a validity window.
// A member can hold many rows per membership type (monthly renewals); reads
// consolidate them into one active window per type.
type UserMembership struct {
	ID              string
	UserID          string
	MembershipID    string
	ValidFrom       time.Time
	ValidUntil      time.Time
	PaymentStatus   MembershipPaymentStatus
	AmountPaid      int64
	PaymentIntentID *string
	CreatedAt       time.Time
}

// IsActiveAt reports whether this row grants entitlement at t.
// The valid_until boundary is inclusive: a membership expiring today still
// counts for today's registrations.
func (um *UserMembership) IsActiveAt(t time.Time) bool {
	if um == nil || um.PaymentStatus != MembershipPaymentPaid {
		return false
	}
	day := t.Truncate(24 * time.Hour)
	return !um.ValidUntil.Truncate(24 * time.Hour).Before(day)
}

// MembershipWindow is the consolidated validity range for one membership type.
type MembershipWindow struct {
	MembershipID string
	ValidFrom    time.Time
	ValidUntil   time.Time
}

// ConsolidateWindows merges overlapping or adjacent paid validity windows of
// the same membership type into a single range per type: earliest start,
// latest end. Adjacent means the next window starts no later than one day
// after the previous ends. Non-paid rows are ignored.
func ConsolidateWindows(rows []*UserMembership) map[string]MembershipWindow {
	byType := make(map[string][]*UserMembership)
	for _, r := range rows {
		if r == nil || r.PaymentStatus != MembershipPaymentPaid {
			continue
		}
		byType[r.MembershipID] = append(byType[r.MembershipID], r)
	}

	out := make(map[string]MembershipWindow, len(byType))
	for id, group := range byType {
		sort.Slice(group, func(i, j int) bool {
			return group[i].ValidFrom.Before(group[j].ValidFrom)
		})
		win := MembershipWindow{
			MembershipID: id,
			ValidFrom:    group[0].ValidFrom,
			ValidUntil:   group[0].ValidUntil,
		}
		for _, r := range group[1:] {
			if r.ValidFrom.After(win.ValidUntil.Add(24 * time.Hour)) {
				// Gap: keep the later window, it is the one that can still
				// be current. Earlier lapsed windows are not interesting
				// for the "active until" presentation.
				win.ValidFrom = r.ValidFrom
				win.ValidUntil = r.ValidUntil
				continue
			}
			if r.ValidUntil.After(win.ValidUntil) {
				win.ValidUntil = r.ValidUntil
			}
		}
		out[id] = win
	}
	return out
}

// ActiveMemberships filters rows down to those granting entitlement at t.
func ActiveMemberships(rows []*UserMembership, t time.Time) []*UserMembership {
	var out []*UserMembership
	for _, r := range rows {
		if r.IsActiveAt(t) {
			out = append(out, r)
		}
	}
	return out
}
