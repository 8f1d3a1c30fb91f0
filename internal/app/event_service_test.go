package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/eventbus"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/reward"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc       *EventService
	bus       *eventbus.Bus
	announcer *fakeAnnouncer
	ledger    *fakeLedger
	claims    *fakeClaims
	clock     *clockwork.FakeClock
	metrics   *metrics.RewardMetrics
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		bus:       eventbus.New(),
		announcer: &fakeAnnouncer{},
		ledger:    &fakeLedger{},
		claims:    newFakeClaims(),
		clock:     clockwork.NewFakeClock(),
		metrics:   metrics.NewRewardMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewEventService(f.bus, f.announcer, f.ledger, f.claims, EventDefaults{
		Marker:         "🌸",
		SettleInterval: reward.DefaultSettleInterval,
		Eligibility:    domain.DefaultEligibility(),
	}, f.metrics, f.clock)
	return f
}

func reaction(scopeID, userID string) domain.Trigger {
	return domain.Trigger{
		AnchorID:      "msg-" + scopeID,
		ActorID:       userID,
		AccountAge:    30 * 24 * time.Hour,
		MarkerMatches: true,
	}
}

func TestStartEvent_RegistersAndClaims(t *testing.T) {
	f := newServiceFixture()

	info, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10, PotSize: 100, Duration: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, "guild-1", info.ScopeID)
	assert.Equal(t, "msg-guild-1", info.AnchorID)
	assert.Equal(t, "running", info.State)
	assert.Equal(t, int64(100), info.PotRemaining)

	ttl, held := f.claims.TTL("guild-1")
	require.True(t, held)
	assert.Equal(t, claimTTL, ttl)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveEvents))

	listed := f.svc.ListEvents()
	require.Len(t, listed, 1)
	assert.Equal(t, "guild-1", listed[0].ScopeID)
}

func TestRunClaimRenewal_KeepsOpenEndedEventClaimed(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.svc.RunClaimRenewal(ctx)
		close(done)
	}()

	blockCtx, blockCancel := context.WithTimeout(context.Background(), time.Second)
	defer blockCancel()
	// settler ticker plus renewal ticker
	require.NoError(t, f.clock.BlockUntilContext(blockCtx, 2))

	for i := 1; i <= 3; i++ {
		f.clock.Advance(claimRenewInterval)
		require.Eventually(t, func() bool { return f.claims.Renewals() == i }, time.Second, 5*time.Millisecond)
	}

	ttl, held := f.claims.TTL("guild-1")
	assert.True(t, held)
	assert.Equal(t, claimTTL, ttl)
	assert.Len(t, f.svc.ListEvents(), 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunClaimRenewal did not return after cancellation")
	}
}

func TestRenewClaims_LostClaimStopsEvent(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)
	_, err = f.svc.StartEvent(context.Background(), "guild-2", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	f.claims.expire("guild-1")
	f.svc.renewClaims(context.Background())

	listed := f.svc.ListEvents()
	require.Len(t, listed, 1)
	assert.Equal(t, "guild-2", listed[0].ScopeID)
	assert.Equal(t, 1, f.announcer.Retracts())

	_, err = f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	assert.ErrorIs(t, err, domain.ErrEventActive, "the scope now belongs to another instance")
}

func TestRenewClaims_ErrorKeepsEventRunning(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	f.claims.renewErr = errors.New("redis unavailable")
	f.svc.renewClaims(context.Background())

	assert.Len(t, f.svc.ListEvents(), 1)
	assert.Zero(t, f.announcer.Retracts())
}

func TestStartEvent_RejectsSecondEventInScope(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.StartEvent(ctx, "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	_, err = f.svc.StartEvent(ctx, "guild-1", domain.EventOptions{Amount: 20})
	assert.ErrorIs(t, err, domain.ErrEventActive)
	assert.Equal(t, 1, f.announcer.Published())
}

func TestStartEvent_ScopeHeldByOtherInstance(t *testing.T) {
	f := newServiceFixture()
	f.claims.foreign["guild-1"] = true

	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})

	assert.ErrorIs(t, err, domain.ErrEventActive)
	assert.Zero(t, f.announcer.Published())
	assert.Empty(t, f.svc.ListEvents())
}

func TestStartEvent_ClaimError(t *testing.T) {
	f := newServiceFixture()
	f.claims.claimErr = errors.New("connection refused")

	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEventActive)
	assert.Empty(t, f.svc.ListEvents())
}

func TestStartEvent_PublishFailureReleasesClaim(t *testing.T) {
	f := newServiceFixture()
	f.announcer.publishErr = errors.New("missing permissions")

	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.Error(t, err)

	_, held := f.claims.TTL("guild-1")
	assert.False(t, held)
	assert.Equal(t, []string{"guild-1"}, f.claims.Released())

	f.announcer.publishErr = nil
	_, err = f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	assert.NoError(t, err)
}

func TestStartEvent_InvalidInput(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.svc.StartEvent(ctx, "  ", domain.EventOptions{Amount: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)

	_, err = f.svc.StartEvent(ctx, "guild-1", domain.EventOptions{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.StartEvent(ctx, "guild-1", domain.EventOptions{Amount: 5, Duration: -time.Minute})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = f.svc.StartEvent(ctx, "guild-1", domain.EventOptions{Amount: 50, PotSize: 20})
	assert.ErrorIs(t, err, domain.ErrPotTooSmall)

	_, held := f.claims.TTL("guild-1")
	assert.False(t, held)
}

func TestStartEvent_ConcurrentStartsAdmitOne(t *testing.T) {
	f := newServiceFixture()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for range 20 {
		wg.Go(func() {
			if _, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10}); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, f.announcer.Published())
}

func TestStopEvent_RemovesAndReleases(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	require.NoError(t, f.svc.StopEvent("guild-1"))

	assert.Empty(t, f.svc.ListEvents())
	assert.Equal(t, []string{"guild-1"}, f.claims.Released())
	assert.Zero(t, testutil.ToFloat64(f.metrics.ActiveEvents))
	assert.Zero(t, f.bus.Subscribers())

	_, err = f.svc.GetEvent("guild-1")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.ErrorIs(t, f.svc.StopEvent("guild-1"), domain.ErrEventNotFound)

	_, err = f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	assert.NoError(t, err, "scope is free again after stop")
}

func TestEventService_SettlesTriggersFromBus(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	f.bus.PublishTrigger(reaction("guild-1", "alice"))
	f.bus.PublishTrigger(reaction("guild-1", "bob"))
	f.bus.PublishTrigger(reaction("guild-2", "carol"))

	require.Eventually(t, func() bool {
		info, err := f.svc.GetEvent("guild-1")
		return err == nil && info.Awarded == 2
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(reward.DefaultSettleInterval)

	require.Eventually(t, func() bool { return len(f.ledger.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"alice", "bob"}, f.ledger.Calls()[0])
}

func TestEventService_AnchorRemovalEndsEvent(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10})
	require.NoError(t, err)

	f.bus.PublishAnchorRemoved("msg-guild-1")

	require.Eventually(t, func() bool { return len(f.svc.ListEvents()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"guild-1"}, f.claims.Released())
}

func TestEventService_TimeoutEndsEvent(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.StartEvent(context.Background(), "guild-1", domain.EventOptions{Amount: 10, Duration: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 2))
	f.clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return len(f.svc.ListEvents()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopAll(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	for _, scope := range []string{"guild-b", "guild-a", "guild-c"} {
		_, err := f.svc.StartEvent(ctx, scope, domain.EventOptions{Amount: 1})
		require.NoError(t, err)
	}

	listed := f.svc.ListEvents()
	require.Len(t, listed, 3)
	assert.Equal(t, "guild-a", listed[0].ScopeID)
	assert.Equal(t, "guild-c", listed[2].ScopeID)

	f.svc.StopAll()

	assert.Empty(t, f.svc.ListEvents())
	assert.ElementsMatch(t, []string{"guild-a", "guild-b", "guild-c"}, f.claims.Released())
	assert.Zero(t, testutil.ToFloat64(f.metrics.ActiveEvents))
}
