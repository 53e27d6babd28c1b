package model

import (
	"time"

	"club-registration/internal/domain"
)

type RegistrationType string

const (
	RegistrationTypeEvent      RegistrationType = "event"
	RegistrationTypeTeam       RegistrationType = "team"
	RegistrationTypeScrimmage  RegistrationType = "scrimmage"
	RegistrationTypeTournament RegistrationType = "tournament"
)

// RegistrationPhase is the explicit lifecycle state derived from the open
// timestamps. It is computed in exactly one place (PhaseAt) so every call
// site agrees on what "open" means.
type RegistrationPhase string

const (
	PhaseDraft   RegistrationPhase = "draft"
	PhasePresale RegistrationPhase = "presale"
	PhaseOpen    RegistrationPhase = "open"
	PhaseExpired RegistrationPhase = "expired"
)

// AlternatePool is the optional sub-pool configuration (alternate/spare
// players) with its own price and accounting code.
type AlternatePool struct {
	Enabled        bool
	Price          int64
	AccountingCode string
}

// Registration defines a purchasable event, team season, scrimmage or
// tournament. RequiredMembershipID is nil when no membership is required at
// the registration level; categories may carry their own requirement.
type Registration struct {
	ID                   string
	Name                 string
	Type                 RegistrationType
	SeasonID             string
	AccountingCode       string
	RequiredMembershipID *string
	Alternate            AlternatePool
	PresaleOpensAt       *time.Time
	OpensAt              *time.Time
	ClosesAt             *time.Time
	CreatedAt            time.Time
}

func (r *Registration) IsZero() bool { return r == nil || r.ID == "" }

func NewRegistration(id, name, seasonID string, typ RegistrationType) (*Registration, error) {
	if id == "" || name == "" || seasonID == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch typ {
	case RegistrationTypeEvent, RegistrationTypeTeam, RegistrationTypeScrimmage, RegistrationTypeTournament:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &Registration{ID: id, Name: name, SeasonID: seasonID, Type: typ, CreatedAt: time.Now()}, nil
}

// PhaseAt derives the lifecycle phase at t.
//
//	no opens_at set            -> draft
//	t < presale_opens_at       -> draft
//	presale <= t < opens_at    -> presale
//	opens_at <= t < closes_at  -> open
//	t >= closes_at             -> expired
//
// A nil presale timestamp means there is no presale phase; a nil closes_at
// means the registration never expires.
func (r *Registration) PhaseAt(t time.Time) RegistrationPhase {
	if r.ClosesAt != nil && !t.Before(*r.ClosesAt) {
		return PhaseExpired
	}
	if r.OpensAt != nil && !t.Before(*r.OpensAt) {
		return PhaseOpen
	}
	if r.PresaleOpensAt != nil && !t.Before(*r.PresaleOpensAt) {
		return PhasePresale
	}
	return PhaseDraft
}

// AcceptsRegistrations reports whether new registrations may be taken at t.
// Presale counts: presale codes are validated upstream, admission here is
// phase-only.
func (r *Registration) AcceptsRegistrations(t time.Time) bool {
	switch r.PhaseAt(t) {
	case PhasePresale, PhaseOpen:
		return true
	default:
		return false
	}
}
