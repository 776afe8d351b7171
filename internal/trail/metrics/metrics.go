package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail write path.
type Metrics struct {
	// Appends by direction and result ("ok" / "error").
	Appends *prometheus.CounterVec

	// Dropped records: append failed and the record class was
	// best-effort, so the row is gone.
	Dropped prometheus.Counter

	// Sink publishes by sink name and result.
	SinkPublishes *prometheus.CounterVec
}

// New creates a Metrics instance with all trail metrics registered on
// the default registry.
func New() *Metrics {
	return &Metrics{
		Appends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_trail_appends_total",
			Help: "Audit trail append attempts by direction and result",
		}, []string{"direction", "result"}),

		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sellergate_trail_dropped_total",
			Help: "Audit trail records lost after a failed best-effort append",
		}),

		SinkPublishes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_trail_sink_publishes_total",
			Help: "Trail fan-out publishes by sink and result",
		}, []string{"sink", "result"}),
	}
}

// ObserveAppend records one append attempt outcome.
func (m *Metrics) ObserveAppend(direction string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Appends.WithLabelValues(direction, result).Inc()
}

// ObserveDrop records a lost best-effort record.
func (m *Metrics) ObserveDrop() {
	if m != nil {
		m.Dropped.Inc()
	}
}

// ObserveSink records one sink publish outcome.
func (m *Metrics) ObserveSink(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkPublishes.WithLabelValues(sink, result).Inc()
}
