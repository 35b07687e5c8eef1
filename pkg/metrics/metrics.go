// Package metrics registers the prometheus instruments shared across the
// crawler, the ingestion pipeline and the federated router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_relay_fetches_total",
			Help: "Relay fetch attempts by outcome.",
		}, []string{"outcome"},
	)
	RateLimitSleeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_rate_limit_sleeps_total",
			Help: "Times the relay token bucket forced a sleep.",
		},
	)
	RelaysDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_relays_discovered_total",
			Help: "New relay URLs extracted from events.",
		},
	)
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_events_ingested_total",
			Help: "Events handled by the ingestion pipeline by outcome.",
		}, []string{"outcome"},
	)
	QueriesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_queries_total",
			Help: "Search queries served by mode.",
		}, []string{"mode"},
	)
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_provider_calls_total",
			Help: "Federated provider calls by provider and outcome.",
		}, []string{"provider", "outcome"},
	)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_retrieve_cache_lookups_total",
			Help: "Retrieve cache lookups by result.",
		}, []string{"result"},
	)
)
