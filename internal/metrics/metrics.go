// Package metrics holds the Prometheus collectors shared by the lookup client,
// the response cache and the graph backends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeStubbed = "stubbed"
	OutcomeEmpty   = "empty"
)

// KindUnsupported labels lookups whose kind is not a supported indicator kind.
const KindUnsupported = "unsupported"

var (
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtlookup_lookups_total",
			Help: "Indicator lookups by operation, kind and outcome",
		},
		[]string{"op", "kind", "outcome"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vtlookup_lookup_duration_seconds",
			Help:    "Duration of lookup operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	RelationshipObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtlookup_relationship_objects_total",
			Help: "Related objects fetched per relationship",
		},
		[]string{"relationship"},
	)

	GraphSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtlookup_graph_submissions_total",
			Help: "Graph submissions by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtlookup_cache_requests_total",
			Help: "Object cache requests by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
