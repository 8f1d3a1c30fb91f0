package reward

import "sync"

// Pot is the shared currency pool of one event. A non-positive size makes
// the pot unlimited: withdrawals always succeed and nothing is tracked.
type Pot struct {
	limited bool

	mu      sync.Mutex
	balance int64
}

func NewPot(size int64) *Pot {
	if size <= 0 {
		return &Pot{}
	}
	return &Pot{limited: true, balance: size}
}

// TryWithdraw takes amount from the pot if the balance covers it.
func (p *Pot) TryWithdraw(amount int64) bool {
	if !p.limited {
		return true
	}
	if amount <= 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance < amount {
		return false
	}
	p.balance -= amount
	return true
}

// Remaining returns the current balance. The second value is false for
// unlimited pots, in which case the balance is meaningless.
func (p *Pot) Remaining() (int64, bool) {
	if !p.limited {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, true
}

func (p *Pot) Limited() bool {
	return p.limited
}
