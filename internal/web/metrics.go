package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalCacheHits tracks open requests served from the snapshot cache.
	TotalCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_cache_hits_total",
		Help: "The total number of open requests served from cache.",
	})
	// TotalCacheMisses tracks open requests that required a fetch.
	TotalCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_cache_misses_total",
		Help: "The total number of open requests that missed the cache.",
	})
)
