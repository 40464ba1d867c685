package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts stage executions and the items they process.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewMetrics registers the stage collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdata",
			Subsystem: "stage",
			Name:      "runs_total",
			Help:      "Stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sportdata",
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Stage wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 4, 8),
		}, []string{"stage"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdata",
			Subsystem: "stage",
			Name:      "items_total",
			Help:      "Items processed by stages, e.g. written rows or skipped fixtures.",
		}, []string{"stage", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.items)
	}

	return m
}

func (m *Metrics) observe(stage string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(stage, outcome).Inc()
	m.duration.WithLabelValues(stage).Observe(seconds)
}

// Add counts n items of stage with the given result label.
func (m *Metrics) Add(stage, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(stage, result).Add(float64(n))
}
