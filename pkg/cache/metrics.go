package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	// CacheHitsTotal counts cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_cache_hits_total",
		Help: "Total number of cache hits",
	})

	// CacheMissesTotal counts cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// CacheSetsTotal counts accepted cache writes.
	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voltrader_cache_sets_total",
		Help: "Total number of accepted cache writes",
	})
)
