package memstore

import (
	"sync"
	"time"
)

// DefaultMaxEntries is the fallback capacity when none is configured.
const DefaultMaxEntries = 500

// Store is a bounded, TTL-aware in-memory cache with FIFO eviction.
type Store struct {
	mu sync.Mutex

	entries map[string]*Entry

	// order keeps keys in insertion order; the front is the oldest.
	// Overwrites do not move a key; explicit removal drops it.
	order []string

	maxEntries int

	hits    uint64
	misses  uint64
	sets    uint64
	deletes uint64

	// now is the clock; replaced in tests to simulate time.
	now func() time.Time
}

// New creates a store holding at most maxEntries entries.
// A non-positive maxEntries falls back to DefaultMaxEntries.
func New(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Set inserts or overwrites an entry. A ttl of zero or less means no
// expiry. If the store is at capacity and the key is new, the
// oldest-inserted entry is evicted first; eviction is silent.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sets++

	if existing, ok := s.entries[key]; ok {
		existing.Value = value
		existing.ExpiresAt = expiry(now, ttl)
		return
	}

	if len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	s.entries[key] = &Entry{
		Key:        key,
		Value:      value,
		ExpiresAt:  expiry(now, ttl),
		InsertedAt: now,
	}
	s.order = append(s.order, key)
	cacheEntries.Set(float64(len(s.entries)))
}

// Get returns the value for key. An expired entry counts as a miss and
// is removed. Get never returns an error; the boolean reports presence.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		cacheMisses.Inc()
		return nil, false
	}

	if entry.IsExpired(s.now()) {
		s.removeLocked(key)
		s.misses++
		cacheMisses.Inc()
		return nil, false
	}

	s.hits++
	cacheHits.WithLabelValues("memory").Inc()
	return entry.Value, true
}

// GetEntry returns the full entry for key without expiry handling or
// statistics accounting. Used by callers implementing
// stale-while-revalidate, which may serve an expired entry once.
func (s *Store) GetEntry(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	snapshot := *entry
	return &snapshot, true
}

// Delete removes the entry for key and reports whether one was removed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	s.removeLocked(key)
	s.deletes++
	return true
}

// Clear removes all entries. The deletes counter reflects only entries
// actually removed, so a second Clear in a row is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes += uint64(len(s.entries))
	s.entries = make(map[string]*Entry)
	s.order = s.order[:0]
	cacheEntries.Set(0)
}

// SweepExpired removes all entries past their TTL and returns how many
// were removed.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			s.removeLocked(key)
			s.deletes++
			removed++
		}
	}
	if removed > 0 {
		cacheSweepRemoved.Add(float64(removed))
	}
	return removed
}

// Keys returns a snapshot of all keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:    s.hits,
		Misses:  s.misses,
		Sets:    s.sets,
		Deletes: s.deletes,
		Entries: len(s.entries),
		HitRate: hitRate(s.hits, s.misses),
	}
}

// evictOldestLocked removes the oldest-inserted entry. Caller holds mu.
func (s *Store) evictOldestLocked() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.removeLocked(oldest)
	cacheEvictions.Inc()
}

// removeLocked deletes key from the entry map and the insertion order.
// Caller holds mu.
func (s *Store) removeLocked(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	cacheEntries.Set(float64(len(s.entries)))
}

// expiry converts a ttl into an absolute expiry time; zero ttl means none.
func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
