package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for moderation operations.
type Metrics struct {
	TransitionsTotal    *prometheus.CounterVec
	DenialsTotal        *prometheus.CounterVec
	TransitionLatency   prometheus.Histogram
	ListLatency         prometheus.Histogram
	EventsByStatusTotal *prometheus.GaugeVec
}

// New registers and returns moderation metrics collectors.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_moderation_transitions_total",
			Help: "Total number of accepted lifecycle transitions, labeled by log action",
		}, []string{"action"}),
		DenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_moderation_denials_total",
			Help: "Total number of rejected transition attempts, labeled by error code",
		}, []string{"code"}),
		TransitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronicle_moderation_transition_latency_seconds",
			Help:    "Latency of lifecycle transitions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ListLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronicle_event_list_latency_seconds",
			Help:    "Latency of event list queries in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EventsByStatusTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chronicle_events_by_status",
			Help: "Current number of events per lifecycle status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementTransition(action string) {
	m.TransitionsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementDenial(code string) {
	m.DenialsTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveTransitionLatency(seconds float64) {
	m.TransitionLatency.Observe(seconds)
}

func (m *Metrics) ObserveListLatency(seconds float64) {
	m.ListLatency.Observe(seconds)
}
