// Package metrics exposes Prometheus counters for the transfer workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	transfersInitiated prometheus.Counter
	transitions        *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		transfersInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ardhi_transfers_initiated_total",
			Help: "Number of transfer requests created.",
		}),
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ardhi_transfer_transitions_total",
			Help: "Transfer state transitions by timeline action.",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncrementInitiated() {
	m.transfersInitiated.Inc()
}

func (m *Metrics) ObserveTransition(action string) {
	m.transitions.WithLabelValues(action).Inc()
}
