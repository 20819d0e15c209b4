package memstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by tier
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"tier"}, // "memory"
	)

	// cacheMisses tracks cache misses
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
	)

	// cacheEvictions tracks capacity evictions
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_evictions_total",
			Help: "Total number of entries evicted at capacity",
		},
	)

	// cacheSweepRemoved tracks entries removed by expiry sweeps
	cacheSweepRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_sweep_removed_total",
			Help: "Total number of expired entries removed by sweeps",
		},
	)

	// cacheEntries tracks the current entry count
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_entries",
			Help: "Current number of entries in the in-memory cache",
		},
	)
)
