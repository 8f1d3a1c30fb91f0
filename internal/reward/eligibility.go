package reward

import "github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"

// Eligibility decides whether a trigger may enter an event. It holds no
// mutable state and is safe for concurrent use.
type Eligibility struct {
	anchorID string
	opts     domain.EligibilityOptions
}

func NewEligibility(anchorID string, opts domain.EligibilityOptions) Eligibility {
	return Eligibility{anchorID: anchorID, opts: opts}
}

// Allows reports whether t passes every filter. Account age must be strictly
// greater than the minimum; membership age, when required, must be known
// and at least the minimum.
func (e Eligibility) Allows(t domain.Trigger) bool {
	if e.anchorID == "" || t.AnchorID != e.anchorID {
		return false
	}
	if !t.MarkerMatches {
		return false
	}
	if t.ActorID == "" || t.ActorIsService {
		return false
	}
	if t.AccountAge <= e.opts.MinAccountAge {
		return false
	}
	if e.opts.RequireMembershipAge {
		if t.MembershipAge == nil || *t.MembershipAge < e.opts.MinMembershipAge {
			return false
		}
	}
	return true
}
