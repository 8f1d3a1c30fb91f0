package reward

import (
	"sync"
	"sync/atomic"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
)

// AwardQueue collects participants that passed every check and are waiting
// for the next settlement.
type AwardQueue struct {
	eligibility Eligibility
	registry    *Registry
	pot         *Pot
	amount      int64

	mu      sync.Mutex
	pending []string

	potEmptied atomic.Bool
}

func NewAwardQueue(eligibility Eligibility, registry *Registry, pot *Pot, amount int64) *AwardQueue {
	return &AwardQueue{
		eligibility: eligibility,
		registry:    registry,
		pot:         pot,
		amount:      amount,
	}
}

// Offer runs a trigger through eligibility, deduplication and the pot, in
// that order, and queues the participant if all three pass. A participant
// that registered but lost the race for the pot stays registered.
func (q *AwardQueue) Offer(t domain.Trigger) domain.OfferResult {
	if !q.eligibility.Allows(t) {
		return domain.OfferIneligible
	}
	if !q.registry.TryRegister(t.ActorID) {
		return domain.OfferDuplicate
	}
	if !q.pot.TryWithdraw(q.amount) {
		return domain.OfferPotExhausted
	}

	q.mu.Lock()
	q.pending = append(q.pending, t.ActorID)
	q.mu.Unlock()

	// Set only after the entry is queued, so a settler that observes the
	// flag is guaranteed to drain the final participant in the same tick.
	if remaining, limited := q.pot.Remaining(); limited && remaining < q.amount {
		q.potEmptied.Store(true)
	}
	return domain.OfferAccepted
}

// DrainAll removes and returns every queued participant.
func (q *AwardQueue) DrainAll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.pending
	q.pending = nil
	return drained
}

// Len returns the number of participants waiting for settlement.
func (q *AwardQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// PotEmptied reports whether the pot can no longer cover another award.
func (q *AwardQueue) PotEmptied() bool {
	return q.potEmptied.Load()
}
