package reward

import (
	"context"
	"log/slog"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/adapter/metrics"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/correlation"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultSettleInterval = 2 * time.Second

	// settleTimeout bounds a ledger write. Settlement runs detached from the
	// event's cancellation so a stop never aborts a write already in flight.
	settleTimeout = 10 * time.Second
)

// SettleResult describes the outcome of one settlement tick.
type SettleResult struct {
	Settled       int
	Err           error
	StopRequested bool
}

// Settler periodically credits queued participants in one bulk ledger call.
type Settler struct {
	scopeID  string
	queue    *AwardQueue
	pot      *Pot
	amount   int64
	source   string
	interval time.Duration

	ledger    domain.Ledger
	announcer domain.Announcer
	handle    domain.MessageHandle
	render    func(remaining int64) domain.Announcement
	display   *displayGate

	retryPolicy  retry.Policy
	clock        clockwork.Clock
	metrics      *metrics.RewardMetrics
	onPotDrained func()
}

// Run ticks every interval until ctx is cancelled.
func (s *Settler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			s.Tick(ctx)
		}
	}
}

// Tick drains the queue and credits everything drained. Failures are logged
// and the drained participants are not put back.
func (s *Settler) Tick(ctx context.Context) SettleResult {
	// Read before draining: if the pot was already empty, this drain is the last one.
	potEmptied := s.queue.PotEmptied()
	batch := s.queue.DrainAll()

	tickCtx := correlation.WithID(context.WithoutCancel(ctx), correlation.NewID())

	if len(batch) == 0 {
		if potEmptied {
			s.requestStop(tickCtx)
		}
		return SettleResult{StopRequested: potEmptied}
	}

	writeCtx, cancel := context.WithTimeout(tickCtx, settleTimeout)
	defer cancel()

	start := s.clock.Now()
	err := s.ledger.AwardBulk(writeCtx, batch, s.amount, s.source)
	if s.metrics != nil {
		s.metrics.SettlementDuration.Observe(s.clock.Since(start).Seconds())
	}
	if err != nil {
		slog.WarnContext(tickCtx, "Settler: bulk award failed, dropping batch", "scope_id", s.scopeID, "users", len(batch), "amount", s.amount, "error", err)
		if s.metrics != nil {
			s.metrics.SettlementFailures.Inc()
		}
		return SettleResult{Err: err}
	}

	if s.metrics != nil {
		s.metrics.ParticipantsSettled.Add(float64(len(batch)))
		s.metrics.CurrencyAwarded.Add(float64(int64(len(batch)) * s.amount))
	}

	remaining, limited := s.pot.Remaining()
	if limited {
		// A stop that raced this write has already retracted the announcement.
		if ctx.Err() == nil {
			s.refreshAnnouncement(tickCtx, remaining)
		}
		slog.InfoContext(tickCtx, "Awarded users currency", "scope_id", s.scopeID, "users", len(batch), "amount", s.amount, "pot_remaining", remaining)
	} else {
		slog.InfoContext(tickCtx, "Awarded users currency", "scope_id", s.scopeID, "users", len(batch), "amount", s.amount)
	}

	if potEmptied {
		s.requestStop(tickCtx)
	}
	return SettleResult{Settled: len(batch), StopRequested: potEmptied}
}

func (s *Settler) refreshAnnouncement(ctx context.Context, remaining int64) {
	content := s.render(remaining)
	var err error
	ran := s.display.do(func() {
		if s.metrics != nil {
			s.metrics.PotRemaining.WithLabelValues(s.scopeID).Set(float64(remaining))
		}
		err = retry.DoVoid(ctx, s.retryPolicy, retry.Always, func() error {
			return s.announcer.Update(ctx, s.handle, content)
		})
	})
	if !ran {
		slog.DebugContext(ctx, "Settler: announcement already retracted, skipping update", "scope_id", s.scopeID)
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "Settler: announcement update failed", "scope_id", s.scopeID, "anchor_id", s.handle.ID, "error", err)
	}
}

func (s *Settler) requestStop(ctx context.Context) {
	slog.InfoContext(ctx, "Settler: pot emptied, stopping event", "scope_id", s.scopeID)
	if s.onPotDrained != nil {
		s.onPotDrained()
	}
}
