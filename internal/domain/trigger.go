package domain

import "time"

// Trigger describes a single participant reacting to an anchor message.
type Trigger struct {
	AnchorID string
	// ActorID is empty when the reacting user could not be resolved.
	ActorID        string
	ActorIsService bool
	AccountAge     time.Duration
	// MembershipAge is nil when the join date in the scope is unknown.
	MembershipAge *time.Duration
	MarkerMatches bool
}

// EligibilityOptions holds the per-event participant filters.
type EligibilityOptions struct {
	MinAccountAge        time.Duration
	MinMembershipAge     time.Duration
	RequireMembershipAge bool
}

func DefaultEligibility() EligibilityOptions {
	return EligibilityOptions{
		MinAccountAge:    5 * 24 * time.Hour,
		MinMembershipAge: 24 * time.Hour,
	}
}

// OfferResult describes why a trigger was or wasn't queued for reward.
type OfferResult int

const (
	OfferAccepted     OfferResult = iota // Participant queued for settlement
	OfferIneligible                      // Eligibility filter rejected the trigger
	OfferDuplicate                       // Participant was already registered
	OfferPotExhausted                    // Pot could not cover another award
)

func (r OfferResult) String() string {
	switch r {
	case OfferAccepted:
		return "accepted"
	case OfferIneligible:
		return "ineligible"
	case OfferDuplicate:
		return "duplicate"
	case OfferPotExhausted:
		return "pot_exhausted"
	default:
		return "unknown"
	}
}
