package manager

import (
	"context"
	"sync"
	"time"
)

// PrefetchConfig holds cache warmup configuration.
type PrefetchConfig struct {
	// MaxConcurrency is the maximum number of parallel fetches.
	MaxConcurrency int

	// Timeout per resource fetch.
	Timeout time.Duration
}

// DefaultPrefetchConfig returns safe warmup defaults.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PrefetchResult reports the outcome for one warmed resource.
type PrefetchResult struct {
	ResourceURL string
	Err         error
}

// Prefetch warms the cache for a list of resources with a bounded
// worker pool. Failures are per-resource; one failed fetch never aborts
// the rest. Returns one result per input URL.
func (m *Manager) Prefetch(ctx context.Context, urls []string, fetch func(ctx context.Context, resourceURL string) (any, error), cfg PrefetchConfig) []PrefetchResult {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	start := time.Now()
	queue := make(chan string, len(urls))
	for _, u := range urls {
		queue <- u
	}
	close(queue)

	results := make([]PrefetchResult, 0, len(urls))
	var resultsMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				_, err := m.GetOrFetch(fetchCtx, u, nil, func(ctx context.Context) (any, error) {
					return fetch(ctx, u)
				})
				cancel()

				resultsMu.Lock()
				results = append(results, PrefetchResult{ResourceURL: u, Err: err})
				resultsMu.Unlock()
			}
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	m.logger.Info().
		Int("resources", len(urls)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("cache warmup complete")

	return results
}
