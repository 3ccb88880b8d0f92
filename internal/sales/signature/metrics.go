package signature

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
)

// Metrics exposes Prometheus collectors for the signing lifecycle.
type Metrics struct {
	transitions   *prometheus.CounterVec
	tokenFailures *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors. A nil registerer uses the default
// Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func (m *Metrics) transition(from, to quotations.Status, trigger Trigger) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to), string(trigger)).Inc()
}

func (m *Metrics) tokenFailure(reason string) {
	if m == nil {
		return
	}
	m.tokenFailures.WithLabelValues(reason).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_quote_status_transitions_total",
		Help: "Quote status transitions partitioned by source, target and trigger.",
	}, []string{"from", "to", "trigger"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_signature_token_failures_total",
		Help: "Rejected signature token uses grouped by reason.",
	}, []string{"reason"})
	registerer.MustRegister(transitions, failures)
	return &Metrics{transitions: transitions, tokenFailures: failures}
}
