package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

const ledgerComponent = "ledger"

// BreakerLedger guards a ledger with a circuit breaker so that settlement
// ticks fail fast while the database is unavailable.
type BreakerLedger struct {
	next domain.Ledger
	cb   circuitbreaker.CircuitBreaker[any]
}

var _ domain.Ledger = (*BreakerLedger)(nil)

// NewBreakerLedger wraps next with the following breaker settings:
// - WithFailureRateThreshold: 60% failure rate, min 5 requests, 30s rolling window
// - WithDelay: 15s before transitioning from open to half-open
// - WithSuccessThreshold: 1 successful request in half-open to close
//
// m may be nil.
func NewBreakerLedger(next domain.Ledger, m *metrics.BreakerMetrics) *BreakerLedger {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 30*time.Second).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", ledgerComponent,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if m != nil {
				m.StateChanges.WithLabelValues(ledgerComponent, e.NewState.String()).Inc()
				m.State.WithLabelValues(ledgerComponent).Set(stateToFloat(e.NewState))
			}
		}).
		Build()

	return &BreakerLedger{next: next, cb: cb}
}

// AwardBulk forwards to the wrapped ledger unless the breaker is open.
// Input validation errors do not count as failures.
func (l *BreakerLedger) AwardBulk(ctx context.Context, userIDs []string, amountEach int64, source string) error {
	if !l.cb.TryAcquirePermit() {
		return fmt.Errorf("ledger unavailable: %w", circuitbreaker.ErrOpen)
	}

	err := l.next.AwardBulk(ctx, userIDs, amountEach, source)
	switch {
	case err == nil, errors.Is(err, domain.ErrInvalidAmount):
		l.cb.RecordSuccess()
	default:
		l.cb.RecordError(err)
	}
	return err
}

// State reports the breaker state, for health checks.
func (l *BreakerLedger) State() circuitbreaker.State {
	return l.cb.State()
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}
