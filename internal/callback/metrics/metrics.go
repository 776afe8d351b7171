package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for outbound callback dispatch.
type Metrics struct {
	// Dispatches by callback action and result ("ok" / "error").
	Dispatches *prometheus.CounterVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return &Metrics{
		Dispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellergate_callback_dispatches_total",
			Help: "Outbound callback deliveries by action and result",
		}, []string{"action", "result"}),
	}
}

// ObserveDispatch records one delivery outcome.
func (m *Metrics) ObserveDispatch(action, result string) {
	if m != nil {
		m.Dispatches.WithLabelValues(action, result).Inc()
	}
}
