// Package metrics holds the Prometheus collectors for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests       *prometheus.CounterVec
	CounterDraftWrites    *prometheus.CounterVec
	CounterSessionsFinish prometheus.Counter
	CounterCoachFallbacks *prometheus.CounterVec
	CounterHandlerPanics  prometheus.Counter

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("titanlift", "test", prometheus.NewRegistry())
}

// NewManager registers every collector with reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterDraftWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "draft_writes_total",
			Help:      "Debounced draft writes by result",
		}, []string{"result"}),
		CounterSessionsFinish: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_finished_total",
			Help:      "The total number of finished workout sessions",
		}),
		CounterCoachFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coach_fallbacks_total",
			Help:      "Coach calls answered with a fallback, by operation",
		}, []string{"op"}),
		CounterHandlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 20, 60},
		}),
	}
}

// DraftWritten records the result of one debounced draft write.
func (m *Manager) DraftWritten(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CounterDraftWrites.WithLabelValues(result).Inc()
}

// CoachFallback records a fallback served for op.
func (m *Manager) CoachFallback(op string) {
	m.CounterCoachFallbacks.WithLabelValues(op).Inc()
}
