package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/reward"
	"github.com/jonboulle/clockwork"
)

const (
	// claimTTL is short so a crashed instance frees its scopes quickly.
	// Running events keep their claims through RunClaimRenewal.
	claimTTL           = 30 * time.Second
	claimRenewInterval = 10 * time.Second
	claimCallTimeout   = 5 * time.Second
)

// EventDefaults are the service-wide settings applied to every new event.
type EventDefaults struct {
	Marker         string
	SettleInterval time.Duration
	Eligibility    domain.EligibilityOptions
}

// EventService owns the events running on this instance: at most one per
// scope, enforced locally and across instances through claims.
type EventService struct {
	notifications domain.NotificationSource
	announcer     domain.Announcer
	ledger        domain.Ledger
	claims        domain.EventClaims
	defaults      EventDefaults
	metrics       *metrics.RewardMetrics
	clock         clockwork.Clock

	mu     sync.Mutex
	events map[string]*reward.Event
}

// NewEventService creates the event registry. m may be nil.
func NewEventService(notifications domain.NotificationSource, announcer domain.Announcer, ledger domain.Ledger, claims domain.EventClaims, defaults EventDefaults, m *metrics.RewardMetrics, clock clockwork.Clock) *EventService {
	return &EventService{
		notifications: notifications,
		announcer:     announcer,
		ledger:        ledger,
		claims:        claims,
		defaults:      defaults,
		metrics:       m,
		clock:         clock,
		events:        make(map[string]*reward.Event),
	}
}

// StartEvent starts a reaction event in the given scope.
func (s *EventService) StartEvent(ctx context.Context, scopeID string, opts domain.EventOptions) (domain.EventInfo, error) {
	scopeID = strings.TrimSpace(scopeID)
	if scopeID == "" {
		return domain.EventInfo{}, domain.ErrInvalidScope
	}
	if err := opts.Validate(); err != nil {
		return domain.EventInfo{}, err
	}

	var ev *reward.Event
	ev = reward.NewEvent(reward.EventConfig{
		ScopeID:        scopeID,
		Options:        opts,
		Eligibility:    s.defaults.Eligibility,
		Marker:         s.defaults.Marker,
		SettleInterval: s.defaults.SettleInterval,
	}, reward.Dependencies{
		Notifications: s.notifications,
		Announcer:     s.announcer,
		Ledger:        s.ledger,
		Clock:         s.clock,
		Metrics:       s.metrics,
	}, func(id string) {
		s.handleEnded(ev, id)
	})

	// Reserve the scope locally first so concurrent starts on this
	// instance never reach Redis twice.
	if !s.reserve(scopeID, ev) {
		return domain.EventInfo{}, domain.ErrEventActive
	}

	claimed, err := s.claims.Claim(ctx, scopeID, claimTTL)
	if err != nil {
		s.unreserve(scopeID, ev)
		return domain.EventInfo{}, fmt.Errorf("failed to claim scope: %w", err)
	}
	if !claimed {
		s.unreserve(scopeID, ev)
		return domain.EventInfo{}, domain.ErrEventActive
	}

	if err := ev.Start(ctx); err != nil {
		s.unreserve(scopeID, ev)
		s.releaseClaim(scopeID)
		return domain.EventInfo{}, err
	}

	s.updateGauge()
	return ev.Snapshot(), nil
}

// StopEvent ends the event in the given scope. Teardown and the claim
// release happen before it returns.
func (s *EventService) StopEvent(scopeID string) error {
	ev, ok := s.lookup(scopeID)
	if !ok {
		return domain.ErrEventNotFound
	}
	ev.Stop()
	return nil
}

func (s *EventService) GetEvent(scopeID string) (domain.EventInfo, error) {
	ev, ok := s.lookup(scopeID)
	if !ok {
		return domain.EventInfo{}, domain.ErrEventNotFound
	}
	return ev.Snapshot(), nil
}

// ListEvents returns all events on this instance, ordered by scope.
func (s *EventService) ListEvents() []domain.EventInfo {
	events := s.snapshotEvents()
	infos := make([]domain.EventInfo, 0, len(events))
	for _, ev := range events {
		infos = append(infos, ev.Snapshot())
	}
	slices.SortFunc(infos, func(a, b domain.EventInfo) int {
		return strings.Compare(a.ScopeID, b.ScopeID)
	})
	return infos
}

// StopAll ends every event on this instance. Used during shutdown.
func (s *EventService) StopAll() {
	events := s.snapshotEvents()
	for _, ev := range events {
		ev.Stop()
	}
	if len(events) > 0 {
		slog.Info("Stopped all reaction events", "count", len(events))
	}
}

// RunClaimRenewal renews the claims of running events until ctx is
// cancelled. An event whose claim was lost is stopped.
func (s *EventService) RunClaimRenewal(ctx context.Context) {
	ticker := s.clock.NewTicker(claimRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.renewClaims(ctx)
		}
	}
}

func (s *EventService) renewClaims(ctx context.Context) {
	for _, ev := range s.snapshotEvents() {
		renewCtx, cancel := context.WithTimeout(ctx, claimCallTimeout)
		held, err := s.claims.Renew(renewCtx, ev.ScopeID(), claimTTL)
		cancel()

		if err != nil {
			// Retried on the next tick; the TTL spans several intervals.
			slog.Warn("Failed to renew scope claim", "scope_id", ev.ScopeID(), "error", err)
			continue
		}
		if !held {
			slog.Error("Scope claim lost, stopping event", "scope_id", ev.ScopeID())
			ev.Stop()
		}
	}
}

// handleEnded is the ended sink of every event started by this service.
func (s *EventService) handleEnded(ev *reward.Event, scopeID string) {
	if !s.unreserve(scopeID, ev) {
		return
	}
	s.releaseClaim(scopeID)
	s.updateGauge()
	slog.Info("Reaction event removed", "scope_id", scopeID)
}

func (s *EventService) reserve(scopeID string, ev *reward.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[scopeID]; ok {
		return false
	}
	s.events[scopeID] = ev
	return true
}

// unreserve removes ev from the registry if it still owns the scope.
func (s *EventService) unreserve(scopeID string, ev *reward.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events[scopeID] != ev {
		return false
	}
	delete(s.events, scopeID)
	return true
}

func (s *EventService) lookup(scopeID string) (*reward.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[scopeID]
	if !ok || ev.State() != domain.EventRunning {
		return nil, false
	}
	return ev, true
}

func (s *EventService) snapshotEvents() []*reward.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*reward.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.State() == domain.EventRunning {
			events = append(events, ev)
		}
	}
	return events
}

func (s *EventService) releaseClaim(scopeID string) {
	ctx, cancel := context.WithTimeout(context.Background(), claimCallTimeout)
	defer cancel()

	if err := s.claims.Release(ctx, scopeID); err != nil {
		slog.Error("Failed to release scope claim", "scope_id", scopeID, "error", err)
	}
}

func (s *EventService) updateGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	n := len(s.events)
	s.mu.Unlock()
	s.metrics.ActiveEvents.Set(float64(n))
}
