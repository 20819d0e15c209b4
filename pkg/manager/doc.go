// Package manager composes the cache subsystem: resolver, in-memory
// store, worker bridge, and invalidation coordinator behind one
// explicitly constructed object.
//
// There is no process-wide singleton. The hosting application controls
// the lifecycle:
//
//	m, err := manager.New(manager.Config{
//		Conduit:    conduit,
//		Versions:   invalidation.NewRedisVersionStore(redisClient),
//		AppVersion: "1.4.2",
//	})
//	if err != nil {
//		return err
//	}
//	if err := m.Initialize(ctx); err != nil {
//		return err
//	}
//	defer m.Close()
//
// Initialize registers with the peer worker (best-effort), starts the
// periodic sweep, and runs the version-change check. Close stops the
// sweep and releases the bridge.
//
// # Reads
//
// GetOrFetch implements the subsystem's control flow: resolve the key
// and policy, check the in-memory store, fetch on miss, store with the
// resolved TTL. Concurrent misses for the same key are deduplicated
// with singleflight, and profiles with a stale-while-revalidate window
// serve an expired entry once while a background refresh runs.
package manager
