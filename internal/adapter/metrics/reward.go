package metrics

import "github.com/prometheus/client_golang/prometheus"

// RewardMetrics holds Prometheus metrics for reaction events and settlement.
type RewardMetrics struct {
	TriggersProcessed   *prometheus.CounterVec
	ParticipantsSettled prometheus.Counter
	CurrencyAwarded     prometheus.Counter
	SettlementFailures  prometheus.Counter
	SettlementDuration  prometheus.Histogram
	PotRemaining        *prometheus.GaugeVec
	ActiveEvents        prometheus.Gauge
	EventsEnded         prometheus.Counter
}

// NewRewardMetrics creates and registers reward pipeline metrics on the given registry.
func NewRewardMetrics(reg prometheus.Registerer) *RewardMetrics {
	m := &RewardMetrics{
		TriggersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "triggers_processed_total",
			Help:      "Total number of reaction triggers processed, by result.",
		}, []string{"result"}),
		ParticipantsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "participants_settled_total",
			Help:      "Total number of participants credited by settlement ticks.",
		}),
		CurrencyAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "currency_awarded_total",
			Help:      "Total amount of currency credited by settlement ticks.",
		}),
		SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "settlement_failures_total",
			Help:      "Total number of settlement ticks whose ledger write failed.",
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "settlement_duration_seconds",
			Help:      "Duration of settlement ledger writes in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		PotRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "pot_remaining",
			Help:      "Remaining pot of pot-limited events, by scope.",
		}, []string{"scope"}),
		ActiveEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "active_events",
			Help:      "Number of events running on this instance.",
		}),
		EventsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reward",
			Name:      "events_ended_total",
			Help:      "Total number of events that reached the stopped state.",
		}),
	}

	reg.MustRegister(
		m.TriggersProcessed,
		m.ParticipantsSettled,
		m.CurrencyAwarded,
		m.SettlementFailures,
		m.SettlementDuration,
		m.PotRemaining,
		m.ActiveEvents,
		m.EventsEnded,
	)
	return m
}

// AnnouncementMetrics holds Prometheus metrics for announcement delivery.
type AnnouncementMetrics struct {
	Published         *prometheus.CounterVec
	Failures          *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
}

// NewAnnouncementMetrics creates and registers announcement metrics on the given registry.
func NewAnnouncementMetrics(reg prometheus.Registerer) *AnnouncementMetrics {
	m := &AnnouncementMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "announcement",
			Name:      "messages_total",
			Help:      "Total number of announcement messages pushed, by action.",
		}, []string{"action"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "announcement",
			Name:      "failures_total",
			Help:      "Total number of failed announcement pushes, by action.",
		}, []string{"action"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "announcement",
			Name:      "active_connections",
			Help:      "Number of viewers connected to announcement channels.",
		}),
	}

	reg.MustRegister(m.Published, m.Failures, m.ActiveConnections)
	return m
}
