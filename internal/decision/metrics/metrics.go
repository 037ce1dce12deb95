package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision engine.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

// New creates and registers all decision engine metrics.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthgate_decision_outcomes_total",
			Help: "Total access decisions rendered, labeled by decision and reason",
		}, []string{"decision", "reason"}),
	}
}

// IncrementOutcome records one rendered decision.
func (m *Metrics) IncrementOutcome(decision, reason string) {
	m.Outcomes.WithLabelValues(decision, reason).Inc()
}
