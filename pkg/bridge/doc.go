// Package bridge provides the asynchronous conduit to the out-of-process
// peer cache (the offline worker owning the worker storage tier).
//
// The peer is reachable only through message passing, never shared
// memory. Messages form a small typed protocol:
//
//   - GET_CACHE_STATS / CACHE_STATS: request/response pair correlated by ID
//   - INVALIDATE_CACHE: fire-and-forget, at-most-once, no acknowledgment
//   - REGISTER / REGISTER_ACK: registration handshake
//
// # Availability
//
// The bridge moves through a fixed state machine:
//
//	Unregistered -> Registering -> Active | RegistrationFailed
//
// There is no transition out of RegistrationFailed without a fresh
// Initialize call. While not Active, worker-tier operations degrade to
// no-ops; nothing here surfaces as a hard failure to composed reads.
//
// # Timeouts
//
// RequestStats applies a timeout (default 5s) and returns
// ErrStatsUnavailable once it elapses; it never leaves the caller
// waiting indefinitely. Invalidate awaits no reply at all: when it
// returns, the worker may not yet have completed the invalidation.
//
// # Transports
//
// The Conduit interface abstracts the transport. NewRedisConduit wires
// the production transport over Redis pub/sub channels; tests use an
// in-process loopback conduit.
package bridge
