package model

// EligibilitySource records which requirement admitted the member.
type EligibilitySource string

const (
	EligibilityNoRequirement EligibilitySource = "no_requirement"
	EligibilityRegistration  EligibilitySource = "registration"
	EligibilityCategory      EligibilitySource = "category"
)

// EligibilityResult is the evaluator's structured verdict. On denial,
// UnmetRequirements lists the membership ids that would have qualified,
// so callers can resolve names for the member-facing message.
type EligibilityResult struct {
	Eligible          bool
	Source            EligibilitySource
	MatchedMembership *UserMembership
	UnmetRequirements []string
}

// CheckMembershipEligibility decides whether the supplied active memberships
// satisfy a registration-level and/or category-level membership requirement.
//
// Both requirements nil means no membership is needed. Otherwise the two
// requirements are alternatives (OR, not AND): a category can offer its own
// path to eligibility independent of the parent registration's requirement.
// Pure function; callers supply only currently-active paid memberships
// (see ActiveMemberships).
func CheckMembershipEligibility(regMembershipID, catMembershipID *string, active []*UserMembership) EligibilityResult {
	if regMembershipID == nil && catMembershipID == nil {
		return EligibilityResult{Eligible: true, Source: EligibilityNoRequirement}
	}

	for _, um := range active {
		if regMembershipID != nil && um.MembershipID == *regMembershipID {
			return EligibilityResult{Eligible: true, Source: EligibilityRegistration, MatchedMembership: um}
		}
		if catMembershipID != nil && um.MembershipID == *catMembershipID {
			return EligibilityResult{Eligible: true, Source: EligibilityCategory, MatchedMembership: um}
		}
	}

	var unmet []string
	if regMembershipID != nil {
		unmet = append(unmet, *regMembershipID)
	}
	if catMembershipID != nil && (regMembershipID == nil || *catMembershipID != *regMembershipID) {
		unmet = append(unmet, *catMembershipID)
	}
	return EligibilityResult{Eligible: false, UnmetRequirements: unmet}
}
