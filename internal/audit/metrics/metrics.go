package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail.
type Metrics struct {
	EntriesAppended *prometheus.CounterVec
}

// New creates and registers all audit metrics.
func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthgate_audit_entries_appended_total",
			Help: "Total audit entries appended, labeled by entry status",
		}, []string{"status"}),
	}
}

// IncrementAppended records one appended entry.
func (m *Metrics) IncrementAppended(status string) {
	m.EntriesAppended.WithLabelValues(status).Inc()
}
