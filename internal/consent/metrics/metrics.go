package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consent registry.
type Metrics struct {
	ConsentsCreated prometheus.Counter
	ConsentsRevoked prometheus.Counter
	CheckCacheHits  prometheus.Counter
}

// New creates and registers all consent registry metrics.
func New() *Metrics {
	return &Metrics{
		ConsentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_consents_created_total",
			Help: "Total number of consents created",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_consents_revoked_total",
			Help: "Total number of consents revoked",
		}),
		CheckCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthgate_consent_check_cache_hits_total",
			Help: "Consent activity checks answered from the cache",
		}),
	}
}

// IncrementCreated records a successful consent creation.
func (m *Metrics) IncrementCreated() { m.ConsentsCreated.Inc() }

// IncrementRevoked records a successful consent revocation.
func (m *Metrics) IncrementRevoked() { m.ConsentsRevoked.Inc() }

// IncrementCheckCacheHit records a cache-served activity check.
func (m *Metrics) IncrementCheckCacheHit() { m.CheckCacheHits.Inc() }
