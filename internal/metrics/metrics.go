// Package metrics exposes prometheus counters for the assignment
// engine. A Metrics value is constructed against an injectable
// registerer so tests can use private registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Transitions   *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	IndexRepairs  prometheus.Counter
}

// New registers and returns the backoffice counters. A nil registerer
// uses the default prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_transitions_total",
			Help: "Assignment state transitions by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_store_errors_total",
			Help: "Record store failures by operation.",
		}, []string{"op"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_cache_requests_total",
			Help: "Local cache lookups by collection and result.",
		}, []string{"collection", "result"}),
		IndexRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_index_repairs_total",
			Help: "Employee reverse-index entries repaired by the reconcile sweep.",
		}),
	}
	reg.MustRegister(m.Transitions, m.StoreErrors, m.CacheRequests, m.IndexRepairs)
	return m
}

// NewNop returns metrics bound to a throwaway registry, for tests and
// callers that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
