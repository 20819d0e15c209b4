package invalidation

// NotificationType classifies cache state changes the UI may reflect.
type NotificationType string

const (
	// NotifyNewVersion signals a new app version was detected and
	// version-scoped entries were invalidated.
	NotifyNewVersion NotificationType = "new_version_available"

	// NotifyCacheCleared signals the cache was cleared.
	NotifyCacheCleared NotificationType = "cache_cleared"

	// NotifyCacheError signals a cache operation failed (for example a
	// malformed invalidation pattern).
	NotifyCacheError NotificationType = "cache_error"
)

// Notification is the payload delivered to subscribers.
type Notification struct {
	Type NotificationType `json:"type"`

	// Detail is a human-readable message.
	Detail string `json:"detail"`
}

// NotifyFunc receives notifications. Callbacks run synchronously on the
// goroutine that triggered the change and must not block.
type NotifyFunc func(Notification)
