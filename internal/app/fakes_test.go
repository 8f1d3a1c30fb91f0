package app

import (
	"context"
	"sync"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
)

type fakeLedger struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (l *fakeLedger) AwardBulk(_ context.Context, userIDs []string, _ int64, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, append([]string(nil), userIDs...))
	return l.err
}

func (l *fakeLedger) Calls() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]string(nil), l.calls...)
}

type fakeAnnouncer struct {
	mu         sync.Mutex
	published  int
	retracts   int
	publishErr error
}

func (a *fakeAnnouncer) Publish(_ context.Context, scopeID string, _ domain.Announcement) (domain.MessageHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publishErr != nil {
		return domain.MessageHandle{}, a.publishErr
	}
	a.published++
	return domain.MessageHandle{ID: "msg-" + scopeID, Channel: "events:" + scopeID}, nil
}

func (a *fakeAnnouncer) Update(context.Context, domain.MessageHandle, domain.Announcement) error {
	return nil
}

func (a *fakeAnnouncer) Retract(context.Context, domain.MessageHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retracts++
	return nil
}

func (a *fakeAnnouncer) Retracts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retracts
}

func (a *fakeAnnouncer) Published() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.published
}

// fakeClaims simulates the shared claim store. Scopes in foreign are held by
// another instance.
type fakeClaims struct {
	mu       sync.Mutex
	held     map[string]time.Duration
	foreign  map[string]bool
	released []string
	renewals int
	claimErr error
	renewErr error
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{held: make(map[string]time.Duration), foreign: make(map[string]bool)}
}

func (c *fakeClaims) Claim(_ context.Context, scopeID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimErr != nil {
		return false, c.claimErr
	}
	if _, ok := c.held[scopeID]; ok || c.foreign[scopeID] {
		return false, nil
	}
	c.held[scopeID] = ttl
	return true, nil
}

func (c *fakeClaims) Renew(_ context.Context, scopeID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renewErr != nil {
		return false, c.renewErr
	}
	if _, ok := c.held[scopeID]; !ok {
		return false, nil
	}
	c.held[scopeID] = ttl
	c.renewals++
	return true, nil
}

// expire drops a held claim, as if its TTL ran out and another instance took it.
func (c *fakeClaims) expire(scopeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, scopeID)
	c.foreign[scopeID] = true
}

func (c *fakeClaims) Renewals() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renewals
}

func (c *fakeClaims) Release(_ context.Context, scopeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, scopeID)
	c.released = append(c.released, scopeID)
	return nil
}

func (c *fakeClaims) TTL(scopeID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ttl, ok := c.held[scopeID]
	return ttl, ok
}

func (c *fakeClaims) Released() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.released...)
}
