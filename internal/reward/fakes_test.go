package reward

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
)

type ledgerCall struct {
	users  []string
	amount int64
	source string
}

type fakeLedger struct {
	mu    sync.Mutex
	calls []ledgerCall
	err   error

	// When set, AwardBulk signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

// blockWrites makes the next AwardBulk calls hold until the returned func is called.
func (l *fakeLedger) blockWrites() (entered <-chan struct{}, release func()) {
	l.entered = make(chan struct{}, 1)
	l.release = make(chan struct{})
	return l.entered, func() { close(l.release) }
}

func (l *fakeLedger) AwardBulk(_ context.Context, userIDs []string, amountEach int64, source string) error {
	if l.entered != nil {
		l.entered <- struct{}{}
		<-l.release
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, ledgerCall{users: append([]string(nil), userIDs...), amount: amountEach, source: source})
	return l.err
}

func (l *fakeLedger) Calls() []ledgerCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledgerCall(nil), l.calls...)
}

func (l *fakeLedger) SetErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

type fakeAnnouncer struct {
	mu          sync.Mutex
	published   []domain.Announcement
	updates     []domain.Announcement
	retracts    int
	publishErr  error
	updateFails int
	retractErr  error
}

func (a *fakeAnnouncer) Publish(_ context.Context, scopeID string, content domain.Announcement) (domain.MessageHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.publishErr != nil {
		return domain.MessageHandle{}, a.publishErr
	}
	a.published = append(a.published, content)
	return domain.MessageHandle{ID: "msg-" + scopeID, Channel: "events:" + scopeID}, nil
}

func (a *fakeAnnouncer) Update(_ context.Context, _ domain.MessageHandle, content domain.Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates = append(a.updates, content)
	if a.updateFails > 0 {
		a.updateFails--
		return errEditConflict
	}
	return nil
}

func (a *fakeAnnouncer) Retract(context.Context, domain.MessageHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retracts++
	return a.retractErr
}

func (a *fakeAnnouncer) Updates() []domain.Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Announcement(nil), a.updates...)
}

func (a *fakeAnnouncer) Retracts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retracts
}

type fakeNotifications struct {
	mu       sync.Mutex
	next     int
	triggers map[int]func(domain.Trigger)
	removed  map[int]func(string)

	unsubscribed atomic.Int32
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{
		triggers: make(map[int]func(domain.Trigger)),
		removed:  make(map[int]func(string)),
	}
}

func (n *fakeNotifications) OnTrigger(handler func(domain.Trigger)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.triggers[id] = handler
	return func() {
		n.mu.Lock()
		delete(n.triggers, id)
		n.mu.Unlock()
		n.unsubscribed.Add(1)
	}
}

func (n *fakeNotifications) OnAnchorRemoved(handler func(string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.removed[id] = handler
	return func() {
		n.mu.Lock()
		delete(n.removed, id)
		n.mu.Unlock()
		n.unsubscribed.Add(1)
	}
}

func (n *fakeNotifications) EmitTrigger(t domain.Trigger) {
	n.mu.Lock()
	handlers := make([]func(domain.Trigger), 0, len(n.triggers))
	for _, h := range n.triggers {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()
	for _, h := range handlers {
		h(t)
	}
}

func (n *fakeNotifications) EmitAnchorRemoved(anchorID string) {
	n.mu.Lock()
	handlers := make([]func(string), 0, len(n.removed))
	for _, h := range n.removed {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()
	for _, h := range handlers {
		h(anchorID)
	}
}

func (n *fakeNotifications) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.triggers) + len(n.removed)
}
