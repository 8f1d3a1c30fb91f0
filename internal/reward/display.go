package reward

import "sync"

// displayGate orders announcement updates against the final retract. Once
// closed, no further update runs, so a retracted announcement stays retracted.
type displayGate struct {
	mu     sync.Mutex
	closed bool
}

// do runs fn unless the gate is closed. It reports whether fn ran.
func (g *displayGate) do(fn func()) bool {
	if g == nil {
		fn()
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	fn()
	return true
}

// close runs fn and shuts the gate. An update in progress finishes first.
func (g *displayGate) close(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	fn()
}
