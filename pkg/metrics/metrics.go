// Package metrics provides the centralized Prometheus metrics registry
// for the catalog cache. All metrics are defined in their respective
// packages (memstore, bridge, invalidation, manager) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Store Metrics (pkg/memstore):
//   - catalog_cache_hits_total{tier="memory"} (Counter): Cache hits by tier
//   - catalog_cache_misses_total (Counter): Cache misses
//   - catalog_cache_evictions_total (Counter): Entries evicted at capacity
//   - catalog_cache_sweep_removed_total (Counter): Expired entries removed by sweeps
//   - catalog_cache_entries (Gauge): Current in-memory entry count
//
// Bridge Metrics (pkg/bridge):
//   - catalog_cache_bridge_messages_total{kind} (Counter): Messages sent to the peer worker
//   - catalog_cache_bridge_timeouts_total (Counter): Request/response exchanges that timed out
//
// Invalidation Metrics (pkg/invalidation):
//   - catalog_cache_invalidations_total{trigger} (Counter): Fan-outs by trigger
//   - catalog_cache_invalidation_removed_total (Counter): In-memory entries removed by invalidation
//   - catalog_cache_sweep_runs_total (Counter): Periodic sweep runs
//   - catalog_cache_pattern_errors_total (Counter): Patterns that failed to compile
//
// Manager Metrics (pkg/manager):
//   - catalog_cache_stale_served_total (Counter): Stale entries served while revalidating
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Worker Bridge Health
//   rate(catalog_cache_bridge_timeouts_total[5m])
//
//   # Invalidation Activity by Trigger
//   sum by (trigger) (rate(catalog_cache_invalidations_total[5m]))
//
//   # Eviction Pressure
//   rate(catalog_cache_evictions_total[5m])
