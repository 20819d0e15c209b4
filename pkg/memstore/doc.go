// Package memstore provides the bounded in-memory cache tier.
//
// The store is a TTL-aware key-value map with FIFO eviction and
// hit/miss/set/delete statistics:
//
// - Bounded capacity; inserting beyond MaxEntries evicts the oldest-inserted entry
// - Per-entry TTL; expired entries are treated as misses and removed on access
// - Explicit sweep of expired entries for periodic cleanup
// - Statistics snapshot with computed hit rate
// - Prometheus metrics for observability
//
// Eviction is FIFO over insertion order, not LRU: a read never promotes an
// entry. Overwriting an existing key keeps its original insertion position.
//
// # Basic Usage
//
//	store := memstore.New(500)
//
//	store.Set("/api/diagnoses?icd10=E11.9", payload, 2*time.Minute)
//
//	if value, ok := store.Get("/api/diagnoses?icd10=E11.9"); ok {
//		// cache hit
//		_ = value
//	}
//
//	removed := store.SweepExpired()
//	stats := store.Stats()
//
// All operations are synchronous and safe for interleaved use from
// multiple goroutines; no operation ever observes a partial update.
package memstore
