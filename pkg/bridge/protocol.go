package bridge

import (
	"context"

	"github.com/medref/catalog-cache/pkg/policy"
)

// MessageKind identifies the protocol message type.
type MessageKind string

const (
	// KindRegister initiates the registration handshake with the peer.
	KindRegister MessageKind = "REGISTER"

	// KindRegisterAck acknowledges a successful registration.
	KindRegisterAck MessageKind = "REGISTER_ACK"

	// KindGetStats requests the peer's cache statistics.
	KindGetStats MessageKind = "GET_CACHE_STATS"

	// KindStats carries the peer's cache statistics in reply.
	KindStats MessageKind = "CACHE_STATS"

	// KindInvalidate instructs the peer to invalidate matching entries.
	// Fire-and-forget: no reply is sent.
	KindInvalidate MessageKind = "INVALIDATE_CACHE"
)

// Message is one protocol frame exchanged with the peer worker.
type Message struct {
	// Kind is the message type.
	Kind MessageKind `json:"kind"`

	// CorrelationID pairs a reply with its request. Empty on
	// fire-and-forget messages.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Pattern is the invalidation target pattern (INVALIDATE_CACHE only).
	Pattern string `json:"pattern,omitempty"`

	// Tier restricts an invalidation to one storage tier.
	// Empty means all tiers the peer manages.
	Tier policy.StorageTier `json:"tier,omitempty"`

	// Stats carries peer statistics (CACHE_STATS only).
	Stats *WorkerStats `json:"stats,omitempty"`
}

// WorkerStats is the statistics snapshot reported by the peer cache.
type WorkerStats struct {
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// Conduit is the message transport to the peer worker.
// Implementations must be safe for concurrent Send calls.
type Conduit interface {
	// Send delivers one message to the peer. Delivery is at-most-once;
	// an error means the message was definitely not sent.
	Send(ctx context.Context, msg Message) error

	// Receive returns the channel of messages arriving from the peer.
	// The channel is closed when the conduit closes.
	Receive() <-chan Message

	// Close releases the transport.
	Close() error
}
