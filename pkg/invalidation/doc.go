// Package invalidation coordinates cache invalidation across storage tiers.
//
// The coordinator owns the rule set and holds references (not ownership)
// to the in-memory store and the worker bridge. All mutation goes through
// their public operations; the coordinator never touches internal state.
//
// # Rules
//
// A Rule binds a trigger to target patterns and affected tiers:
//
//   - event triggers fire on named application events
//     (userLogin, userLogout, dataUpdate, appUpdate)
//   - time triggers fire on every periodic sweep tick
//   - versionChange triggers fire when the persisted app version marker
//     differs from the running version
//
// Invalidation is synchronous and guaranteed for the memory tier and
// best-effort for the worker tier: forwarded commands are at-most-once
// with no acknowledgment, so worker-tier counts are "requested", never
// "confirmed". A malformed pattern is caught and logged per rule; it
// never blocks the fan-out to other rules.
//
// # Periodic sweep
//
// Start launches the one recurring background task of the subsystem: a
// fixed-interval sweep of expired in-memory entries (default 60s).
// Stop cancels it; tests and teardown must call Stop to avoid leaking
// the timer.
//
// # Notifications
//
// Subscribers registered with Subscribe receive change notifications
// ({type, detail}) the hosting application may surface: a new version
// was detected, the cache was cleared, or an invalidation rule failed.
package invalidation
