package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts lifecycle operations by outcome.
type Metrics struct {
	operations      *prometheus.CounterVec
	cleanupFailures prometheus.Counter
}

// NewMetrics registers the document metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_operations_total",
				Help: "Document lifecycle operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_blob_cleanup_failures_total",
			Help: "Blobs that could not be removed after their document was deleted or its creation failed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.cleanupFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) cleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}
