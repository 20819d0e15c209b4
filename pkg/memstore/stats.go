package memstore

// Stats is a point-in-time snapshot of store statistics.
// Counters reset only on process restart.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	Deletes uint64  `json:"deletes"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

// hitRate computes hits / (hits + misses), or 0 when no lookups occurred.
func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
