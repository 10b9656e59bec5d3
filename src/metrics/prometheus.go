package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes cycle and ledger activity as Prometheus metrics.
type Recorder struct {
	cycles        prometheus.Counter
	outcomes      *prometheus.CounterVec
	intents       *prometheus.CounterVec
	openPositions prometheus.Gauge
	latency       *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "phase_executor_cycles_total",
			Help: "Total number of completed trading cycles",
		}),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phase_executor_symbol_outcomes_total",
				Help: "Per-symbol analysis outcomes by gate",
			},
			[]string{"symbol", "outcome"},
		),
		intents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phase_executor_intents_applied_total",
				Help: "Order intents applied to the ledger",
			},
			[]string{"phase", "kind"},
		),
		openPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phase_executor_open_positions",
			Help: "Open positions held by the ledger",
		}),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phase_executor_api_duration_seconds",
				Help:    "Duration of signal service calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle() {
	r.cycles.Inc()
}

func (r *Recorder) RecordOutcome(symbol, outcome string) {
	r.outcomes.WithLabelValues(symbol, outcome).Inc()
}

func (r *Recorder) RecordIntent(phase, kind string) {
	r.intents.WithLabelValues(phase, kind).Inc()
}

func (r *Recorder) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
