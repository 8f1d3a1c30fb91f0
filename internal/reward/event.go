package reward

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

const retractTimeout = 5 * time.Second

// EventConfig is the fixed configuration of one event.
type EventConfig struct {
	ScopeID        string
	Options        domain.EventOptions
	Eligibility    domain.EligibilityOptions
	Marker         string
	Source         string
	SettleInterval time.Duration
}

// Dependencies are the collaborators an event talks to.
type Dependencies struct {
	Notifications domain.NotificationSource
	Announcer     domain.Announcer
	Ledger        domain.Ledger
	Clock         clockwork.Clock
	Metrics       *metrics.RewardMetrics
	RetryPolicy   retry.Policy
}

// Event is a single reaction event within one scope. It moves from created
// to running to stopped and never back.
type Event struct {
	cfg     EventConfig
	deps    Dependencies
	onEnded func(scopeID string)

	pot      *Pot
	registry *Registry
	accepted atomic.Int64
	state    atomic.Int32

	display displayGate

	stopMu        sync.Mutex
	handle        domain.MessageHandle
	queue         *AwardQueue
	settler       *Settler
	endsAt        time.Time
	unsubTrigger  func()
	unsubRemoved  func()
	cancelSettler context.CancelFunc
	timeout       clockwork.Timer
}

// NewEvent builds an event in the created state. onEnded is called exactly
// once, with the scope id, after the event has stopped.
func NewEvent(cfg EventConfig, deps Dependencies, onEnded func(scopeID string)) *Event {
	if cfg.Source == "" {
		cfg.Source = domain.DefaultSource
	}
	if cfg.SettleInterval <= 0 {
		cfg.SettleInterval = DefaultSettleInterval
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.RetryPolicy.MaxAttempts == 0 {
		deps.RetryPolicy = retry.DefaultPolicy()
	}

	return &Event{
		cfg:      cfg,
		deps:     deps,
		onEnded:  onEnded,
		pot:      NewPot(cfg.Options.PotSize),
		registry: NewRegistry(),
	}
}

func (e *Event) ScopeID() string {
	return e.cfg.ScopeID
}

func (e *Event) State() domain.EventState {
	return domain.EventState(e.state.Load())
}

// Anchor returns the id of the published announcement, or "" before start.
func (e *Event) Anchor() string {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()
	return e.handle.ID
}

// Start publishes the announcement, subscribes to notifications, and starts
// the settlement loop and the optional timeout.
func (e *Event) Start(ctx context.Context) error {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	switch e.State() {
	case domain.EventRunning:
		return domain.ErrEventStarted
	case domain.EventStopped:
		return domain.ErrEventStopped
	}

	if d := e.cfg.Options.Duration; d > 0 {
		e.endsAt = e.deps.Clock.Now().Add(d)
	}

	handle, err := e.deps.Announcer.Publish(ctx, e.cfg.ScopeID, e.render(e.cfg.Options.PotSize))
	if err != nil {
		return fmt.Errorf("failed to publish announcement: %w", err)
	}
	e.handle = handle

	queue := NewAwardQueue(NewEligibility(handle.ID, e.cfg.Eligibility), e.registry, e.pot, e.cfg.Options.Amount)
	e.queue = queue
	e.settler = &Settler{
		scopeID:      e.cfg.ScopeID,
		queue:        queue,
		pot:          e.pot,
		amount:       e.cfg.Options.Amount,
		source:       e.cfg.Source,
		interval:     e.cfg.SettleInterval,
		ledger:       e.deps.Ledger,
		announcer:    e.deps.Announcer,
		handle:       handle,
		render:       e.render,
		display:      &e.display,
		retryPolicy:  e.deps.RetryPolicy,
		clock:        e.deps.Clock,
		metrics:      e.deps.Metrics,
		onPotDrained: e.Stop,
	}

	anchorID := handle.ID
	e.unsubTrigger = e.deps.Notifications.OnTrigger(func(t domain.Trigger) {
		go e.offer(queue, t)
	})
	e.unsubRemoved = e.deps.Notifications.OnAnchorRemoved(func(id string) {
		if id == anchorID {
			go e.Stop()
		}
	})

	settleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancelSettler = cancel
	go e.settler.Run(settleCtx)

	if d := e.cfg.Options.Duration; d > 0 {
		e.timeout = e.deps.Clock.AfterFunc(d, e.Stop)
	}

	if remaining, limited := e.pot.Remaining(); limited && e.deps.Metrics != nil {
		e.deps.Metrics.PotRemaining.WithLabelValues(e.cfg.ScopeID).Set(float64(remaining))
	}

	e.state.Store(int32(domain.EventRunning))
	slog.InfoContext(ctx, "Reaction event started", "scope_id", e.cfg.ScopeID, "anchor_id", anchorID, "amount", e.cfg.Options.Amount, "pot_size", e.cfg.Options.PotSize, "duration", e.cfg.Options.Duration)
	return nil
}

// Stop ends the event. It is safe to call any number of times from any
// goroutine; only the first call tears down and notifies.
func (e *Event) Stop() {
	stopped, wasRunning := e.markStopped()
	if !stopped {
		return
	}

	// Retract outside stopMu: the gate waits for an update already in flight.
	if wasRunning {
		e.display.close(e.retract)
	}

	slog.Info("Reaction event ended", "scope_id", e.cfg.ScopeID, "awarded", e.accepted.Load())
	if e.deps.Metrics != nil {
		e.deps.Metrics.EventsEnded.Inc()
		e.deps.Metrics.PotRemaining.DeleteLabelValues(e.cfg.ScopeID)
	}
	if e.onEnded != nil {
		e.onEnded(e.cfg.ScopeID)
	}
}

// markStopped moves the event to stopped, tearing down a running event on
// the way. It reports whether this call made the transition and whether the
// event had been running.
func (e *Event) markStopped() (stopped, wasRunning bool) {
	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	prev := e.State()
	if prev == domain.EventStopped {
		return false, false
	}
	defer e.state.Store(int32(domain.EventStopped))

	if prev == domain.EventRunning {
		e.teardown()
	}
	return true, prev == domain.EventRunning
}

// teardown releases the subscriptions and timers Start acquired. Caller
// holds stopMu.
func (e *Event) teardown() {
	if e.unsubTrigger != nil {
		e.unsubTrigger()
	}
	if e.unsubRemoved != nil {
		e.unsubRemoved()
	}
	if e.cancelSettler != nil {
		e.cancelSettler()
	}
	if e.timeout != nil {
		e.timeout.Stop()
	}
}

// retract removes the announcement, best effort.
func (e *Event) retract() {
	ctx, cancel := context.WithTimeout(context.Background(), retractTimeout)
	defer cancel()
	if err := e.deps.Announcer.Retract(ctx, e.handle); err != nil {
		slog.Debug("Failed to retract event announcement", "scope_id", e.cfg.ScopeID, "anchor_id", e.handle.ID, "error", err)
	}
}

// Snapshot returns a read-only view of the event.
func (e *Event) Snapshot() domain.EventInfo {
	e.stopMu.Lock()
	anchorID, queue := e.handle.ID, e.queue
	e.stopMu.Unlock()

	pending := 0
	if queue != nil {
		pending = queue.Len()
	}
	remaining, limited := e.pot.Remaining()
	return domain.EventInfo{
		ScopeID:      e.cfg.ScopeID,
		AnchorID:     anchorID,
		State:        e.State().String(),
		Amount:       e.cfg.Options.Amount,
		PotSize:      e.cfg.Options.PotSize,
		PotRemaining: remaining,
		Unlimited:    !limited,
		Awarded:      int(e.accepted.Load()),
		Participants: e.registry.Len(),
		Pending:      pending,
		Duration:     e.cfg.Options.Duration,
	}
}

func (e *Event) offer(queue *AwardQueue, t domain.Trigger) {
	result := queue.Offer(t)
	if result == domain.OfferAccepted {
		e.accepted.Add(1)
		slog.Debug("Participant queued for reward", "scope_id", e.cfg.ScopeID, "user_id", t.ActorID)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.TriggersProcessed.WithLabelValues(result.String()).Inc()
	}
}

func (e *Event) render(remaining int64) domain.Announcement {
	return domain.Announcement{
		Kind:         domain.AnnouncementKindReaction,
		ScopeID:      e.cfg.ScopeID,
		Amount:       e.cfg.Options.Amount,
		PotSize:      e.cfg.Options.PotSize,
		PotRemaining: remaining,
		Unlimited:    !e.cfg.Options.PotLimited(),
		Marker:       e.cfg.Marker,
		EndsAt:       e.endsAt,
	}
}
