package transport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts provider traffic.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	cacheHit *prometheus.CounterVec
}

// NewMetrics registers the transport collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdata",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Provider HTTP requests by status code.",
		}, []string{"provider", "code"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdata",
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Provider HTTP retries by reason.",
		}, []string{"provider", "reason"}),
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sportdata",
			Subsystem: "http",
			Name:      "cache_hits_total",
			Help:      "Responses served from the payload cache.",
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.retries, m.cacheHit)
	}

	return m
}

func (m *Metrics) observe(provider string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, strconv.Itoa(code)).Inc()
}

func (m *Metrics) retry(provider, reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(provider, reason).Inc()
}

func (m *Metrics) hit(provider string) {
	if m == nil {
		return
	}
	m.cacheHit.WithLabelValues(provider).Inc()
}
