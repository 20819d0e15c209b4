package manager

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// revalidateTimeout bounds a background stale-while-revalidate fetch.
const revalidateTimeout = 30 * time.Second

var staleServed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "catalog_cache_stale_served_total",
	Help: "Total stale entries served while revalidating in the background",
})

// FetchFunc performs the real fetch for a resource on cache miss.
type FetchFunc func(ctx context.Context) (any, error)

// GetOrFetch resolves the key and policy for a resource, serves it from
// the in-memory store when fresh, and otherwise fetches and stores it
// with the resolved TTL. Concurrent misses for the same key share one
// fetch. When the profile has a stale-while-revalidate window, an entry
// expired within that window is served immediately while a background
// refresh runs.
func (m *Manager) GetOrFetch(ctx context.Context, resourceURL string, params map[string]string, fetch FetchFunc) (any, error) {
	key, profile := m.resolver.Resolve(resourceURL, params)

	if entry, ok := m.store.GetEntry(key); ok {
		now := time.Now()
		if !entry.IsExpired(now) {
			// Fresh: read through Get so the hit is accounted.
			if value, ok := m.store.Get(key); ok {
				return value, nil
			}
		} else if profile.StaleWhileRevalidate > 0 &&
			now.Before(entry.ExpiresAt.Add(profile.StaleWhileRevalidate)) {
			staleServed.Inc()
			m.logger.Debug().Str("key", key).Msg("serving stale entry, revalidating in background")
			m.revalidate(key, profile.TTL, fetch)
			return entry.Value, nil
		}
	}

	// Miss path: the read below accounts the miss and removes an entry
	// expired past its revalidation window.
	m.store.Get(key)

	value, err, _ := m.group.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	m.store.Set(key, value, profile.TTL)
	return value, nil
}

// revalidate refreshes a stale entry in the background. Shares the
// singleflight key with GetOrFetch so a concurrent miss does not fetch
// twice.
func (m *Manager) revalidate(key string, ttl time.Duration, fetch FetchFunc) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
		defer cancel()

		value, err, _ := m.group.Do(key, func() (any, error) {
			return fetch(ctx)
		})
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("background revalidation failed")
			return
		}
		m.store.Set(key, value, ttl)
	}()
}
