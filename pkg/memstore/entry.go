package memstore

import "time"

// Entry represents one cached value.
type Entry struct {
	// Key is the canonical cache key.
	Key string

	// Value is the cached payload. The store does not interpret it.
	Value any

	// ExpiresAt is when the entry becomes stale. Zero means no TTL:
	// the entry persists until evicted or explicitly removed.
	ExpiresAt time.Time

	// InsertedAt is when the entry was first stored under its key.
	InsertedAt time.Time
}

// IsExpired reports whether the entry is past its TTL at the given time.
// Entries without a TTL never expire.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// TTL returns the remaining time until expiration at the given time.
// Returns 0 if already expired or if the entry has no TTL.
func (e *Entry) TTL(now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
