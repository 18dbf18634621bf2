package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the parcel registry's Prometheus counters.
type Metrics struct {
	ParcelsCreated    prometheus.Counter
	ApprovalDecisions *prometheus.CounterVec
	FraudFlags        prometheus.Counter
}

// New creates and registers all parcel metrics.
func New() *Metrics {
	return &Metrics{
		ParcelsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ardhi_parcels_created_total",
			Help: "Total number of parcels registered.",
		}),
		ApprovalDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ardhi_parcel_approval_decisions_total",
			Help: "Parcel approval decisions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		FraudFlags: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ardhi_parcel_fraud_flags_total",
			Help: "Total number of fraud flags raised on parcels.",
		}),
	}
}

func (m *Metrics) IncrementParcelsCreated() {
	m.ParcelsCreated.Inc()
}

func (m *Metrics) ObserveApprovalDecision(stage string, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.ApprovalDecisions.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) IncrementFraudFlags() {
	m.FraudFlags.Inc()
}
