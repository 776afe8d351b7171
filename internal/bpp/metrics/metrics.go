package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the protocol action pipeline.
type Metrics struct {
	// Responses by action and ack status.
	Responses *prometheus.CounterVec

	// NACKs by action and wire error code.
	Nacks *prometheus.CounterVec

	// Stale rejections by action.
	StaleRejections *prometheus.CounterVec

	// Stale checks that failed open because the trail store was
	// unreachable.
	GuardFailOpen *prometheus.CounterVec

	// Primary record saves that needed more than one attempt.
	PersistRetries *prometheus.CounterVec

	// End-to-end handling latency by action.
	HandleLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all pipeline metrics registered
// on the default registry.
func New() *Metrics {
	return &Metrics{
		Responses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_responses_total",
			Help: "Synchronous responses by action and ack status",
		}, []string{"action", "status"}),

		Nacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_nacks_total",
			Help: "NACK responses by action and wire error code",
		}, []string{"action", "code"}),

		StaleRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_stale_rejections_total",
			Help: "Deliveries rejected as superseded by a newer event",
		}, []string{"action"}),

		GuardFailOpen: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_guard_fail_open_total",
			Help: "Stale checks that failed open due to trail store errors",
		}, []string{"action"}),

		PersistRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_persist_retries_total",
			Help: "Primary record save attempts beyond the first",
		}, []string{"action"}),

		HandleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sellergate_handle_duration_seconds",
			Help:    "Duration of inbound request handling by action",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),
	}
}

// ObserveResponse records one synchronous response.
func (m *Metrics) ObserveResponse(action, status string) {
	if m != nil {
		m.Responses.WithLabelValues(action, status).Inc()
	}
}

// ObserveNack records one NACK by code.
func (m *Metrics) ObserveNack(action, code string) {
	if m != nil {
		m.Nacks.WithLabelValues(action, code).Inc()
	}
}

// ObserveStale records one stale rejection.
func (m *Metrics) ObserveStale(action string) {
	if m != nil {
		m.StaleRejections.WithLabelValues(action).Inc()
	}
}

// ObserveFailOpen records one fail-open stale check.
func (m *Metrics) ObserveFailOpen(action string) {
	if m != nil {
		m.GuardFailOpen.WithLabelValues(action).Inc()
	}
}

// ObservePersistRetry records one extra save attempt.
func (m *Metrics) ObservePersistRetry(action string) {
	if m != nil {
		m.PersistRetries.WithLabelValues(action).Inc()
	}
}

// ObserveHandleLatency records the total handling duration.
func (m *Metrics) ObserveHandleLatency(action string, d time.Duration) {
	if m != nil {
		m.HandleLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}
