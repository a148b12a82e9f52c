// Package metrics exposes prometheus instrumentation for the fetch
// pipeline and cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CacheHits     *prometheus.CounterVec
	CacheMisses   prometheus.Counter
	CacheDegraded prometheus.Counter

	FetchItems    *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	DeadSources   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production; tests use a private registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_cache_hits_total",
			Help: "Cache hits by tier and freshness state.",
		}, []string{"tier", "state"}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_cache_misses_total",
			Help: "Full cache misses that forced a synchronous fetch.",
		}),
		CacheDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "newspulse_cache_degraded_total",
			Help: "Responses served from an expired entry after fetch failure.",
		}),
		FetchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_fetch_items_total",
			Help: "Items fetched per platform.",
		}, []string{"platform"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_fetch_failures_total",
			Help: "Source fetch failures per platform.",
		}, []string{"platform"}),
		DeadSources: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newspulse_dead_sources_total",
			Help: "Sources that returned a definitive not-found response.",
		}, []string{"platform"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newspulse_fetch_duration_seconds",
			Help:    "Duration of one source fetch, pagination included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
	}
}
