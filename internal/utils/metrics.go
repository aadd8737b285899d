package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tracker. A nil *Metrics is
// valid and records nothing, which keeps tests off the global registry.
type Metrics struct {
	fixesReceived        prometheus.Counter
	fixesRecorded        prometheus.Counter
	sessionsStarted      prometheus.Counter
	sessionsSaved        prometheus.Counter
	sessionsDiscarded    prometheus.Counter
	characteristicPoints prometheus.Counter
	storeErrors          *prometheus.CounterVec
	activeSessions       prometheus.Gauge
	saveLatency          prometheus.Histogram
}

// NewMetrics creates and registers all tracker metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		fixesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_fixes_received_total",
			Help: "Total number of location fixes delivered by the device",
		}),
		fixesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_fixes_recorded_total",
			Help: "Total number of fixes appended to an active session",
		}),
		sessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		sessionsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_sessions_saved_total",
			Help: "Total number of sessions promoted to saved routes",
		}),
		sessionsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_sessions_discarded_total",
			Help: "Total number of stopped sessions discarded without saving",
		}),
		characteristicPoints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tracker_characteristic_points_total",
			Help: "Total number of characteristic points recorded",
		}),
		storeErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_store_errors_total",
				Help: "Total number of route store failures by operation",
			},
			[]string{"operation"},
		),
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_active_sessions",
			Help: "Whether a recording session is currently active",
		}),
		saveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_route_save_latency_ms",
			Help:    "Latency of persisting a saved route in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

// IncrementFixesReceived counts a fix delivered over the ingest surface.
func (m *Metrics) IncrementFixesReceived() {
	if m == nil {
		return
	}
	m.fixesReceived.Inc()
}

// IncrementFixesRecorded counts a fix appended to the active session.
func (m *Metrics) IncrementFixesRecorded() {
	if m == nil {
		return
	}
	m.fixesRecorded.Inc()
}

// SessionStarted marks a session as started.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
	m.activeSessions.Set(1)
}

// SessionStopped marks the active session as stopped.
func (m *Metrics) SessionStopped() {
	if m == nil {
		return
	}
	m.activeSessions.Set(0)
}

// SessionSaved counts a session promoted to a saved route.
func (m *Metrics) SessionSaved() {
	if m == nil {
		return
	}
	m.sessionsSaved.Inc()
}

// SessionDiscarded counts a stopped session dropped without saving.
func (m *Metrics) SessionDiscarded() {
	if m == nil {
		return
	}
	m.sessionsDiscarded.Inc()
}

// IncrementCharacteristicPoints counts a recorded characteristic point.
func (m *Metrics) IncrementCharacteristicPoints() {
	if m == nil {
		return
	}
	m.characteristicPoints.Inc()
}

// IncrementStoreErrors counts a route store failure for the named operation.
func (m *Metrics) IncrementStoreErrors(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

// RecordSaveLatency records the latency of persisting a saved route.
func (m *Metrics) RecordSaveLatency(milliseconds float64) {
	if m == nil {
		return
	}
	m.saveLatency.Observe(milliseconds)
}
