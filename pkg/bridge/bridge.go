package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/medref/catalog-cache/pkg/policy"
)

// DefaultTimeout bounds how long a request/response exchange may take.
const DefaultTimeout = 5 * time.Second

var (
	// ErrStatsUnavailable is returned when the peer does not reply to a
	// stats request within the timeout.
	ErrStatsUnavailable = errors.New("worker cache stats unavailable")

	// ErrBridgeUnavailable is returned when the bridge is not in the
	// Active state.
	ErrBridgeUnavailable = errors.New("worker bridge unavailable")
)

// Prometheus metrics for bridge operations.
var (
	bridgeMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_bridge_messages_total",
		Help: "Total messages sent to the peer worker by kind",
	}, []string{"kind"})

	bridgeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_bridge_timeouts_total",
		Help: "Total request/response exchanges that timed out",
	})
)

// Config holds bridge configuration.
type Config struct {
	// Conduit is the message transport to the peer worker. Required.
	Conduit Conduit

	// Timeout bounds request/response exchanges (default DefaultTimeout).
	Timeout time.Duration

	// Logger is the structured logger (default: disabled).
	Logger zerolog.Logger
}

// Bridge relays commands to the peer worker cache and correlates replies.
// It owns no cache entries; the worker process is the sole owner of
// worker-tier entries.
type Bridge struct {
	conduit Conduit
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.Mutex
	state     State
	reachable bool
	pending   map[string]chan Message

	loopOnce sync.Once
	done     chan struct{}
}

// New creates a bridge over the given conduit. The bridge starts in the
// Unregistered state; call Initialize to perform the handshake.
func New(cfg Config) *Bridge {
	if cfg.Conduit == nil {
		panic("bridge conduit cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Bridge{
		conduit: cfg.Conduit,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		state:   StateUnregistered,
		pending: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
}

// State returns the current availability state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsAvailable reports whether the peer worker is currently registered
// and reachable. Reachability is re-evaluated on every exchange: a
// timed-out request marks the peer unreachable until a reply arrives.
func (b *Bridge) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateActive && b.reachable
}

// SetOnline feeds connectivity signals from the host application.
// Going offline marks the peer unreachable immediately; coming back
// online restores reachability for an Active bridge, subject to
// re-evaluation on the next exchange.
func (b *Bridge) SetOnline(online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !online {
		b.reachable = false
		return
	}
	if b.state == StateActive {
		b.reachable = true
	}
}

// Initialize performs the registration handshake. It transitions
// Unregistered (or RegistrationFailed) -> Registering, then Active on
// acknowledgment or RegistrationFailed on error or timeout.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateRegistering || b.state == StateActive {
		b.mu.Unlock()
		return nil
	}
	b.state = StateRegistering
	b.mu.Unlock()

	b.loopOnce.Do(func() { go b.receiveLoop() })

	if _, err := b.exchange(ctx, Message{Kind: KindRegister}, KindRegisterAck); err != nil {
		b.setState(StateRegistrationFailed, false)
		b.logger.Warn().Err(err).Msg("worker registration failed")
		return err
	}

	b.setState(StateActive, true)
	b.logger.Info().Msg("worker bridge active")
	return nil
}

// RequestStats asks the peer for its cache statistics. It returns
// ErrBridgeUnavailable when the bridge is not Active and
// ErrStatsUnavailable when the peer does not reply within the timeout.
func (b *Bridge) RequestStats(ctx context.Context) (*WorkerStats, error) {
	if b.State() != StateActive {
		return nil, ErrBridgeUnavailable
	}

	reply, err := b.exchange(ctx, Message{Kind: KindGetStats}, KindStats)
	if err != nil {
		bridgeTimeouts.Inc()
		b.markUnreachable()
		b.logger.Warn().Err(err).Msg("worker stats request timed out")
		return nil, ErrStatsUnavailable
	}

	if reply.Stats == nil {
		return nil, ErrStatsUnavailable
	}
	return reply.Stats, nil
}

// Invalidate forwards an invalidation command to the peer. It is
// fire-and-forget: no acknowledgment is awaited, and the worker may not
// have completed the invalidation when this call returns. A no-op when
// the bridge is not Active.
func (b *Bridge) Invalidate(ctx context.Context, pattern string, tier policy.StorageTier) {
	if b.State() != StateActive {
		return
	}

	msg := Message{
		Kind:    KindInvalidate,
		Pattern: pattern,
		Tier:    tier,
	}
	if err := b.conduit.Send(ctx, msg); err != nil {
		b.logger.Warn().Err(err).Str("pattern", pattern).Msg("worker invalidation send failed")
		return
	}
	bridgeMessagesSent.WithLabelValues(string(KindInvalidate)).Inc()
	b.logger.Debug().Str("pattern", pattern).Str("tier", string(tier)).Msg("worker invalidation requested")
}

// Close stops the receive loop and releases the conduit. The bridge
// returns to Unregistered; it must not be reused after Close.
func (b *Bridge) Close() error {
	b.mu.Lock()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.state = StateUnregistered
	b.reachable = false
	b.mu.Unlock()
	return b.conduit.Close()
}

// exchange sends a request and waits for the correlated reply of the
// expected kind, bounded by the bridge timeout.
func (b *Bridge) exchange(ctx context.Context, req Message, want MessageKind) (Message, error) {
	req.CorrelationID = uuid.NewString()

	replyCh := make(chan Message, 1)
	b.mu.Lock()
	b.pending[req.CorrelationID] = replyCh
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.CorrelationID)
		b.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.conduit.Send(ctx, req); err != nil {
		return Message{}, err
	}
	bridgeMessagesSent.WithLabelValues(string(req.Kind)).Inc()

	select {
	case reply := <-replyCh:
		if reply.Kind != want {
			return Message{}, errors.New("unexpected reply kind " + string(reply.Kind))
		}
		return reply, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-b.done:
		return Message{}, ErrBridgeUnavailable
	}
}

// receiveLoop dispatches incoming messages to waiting exchanges.
// Unsolicited messages are dropped.
func (b *Bridge) receiveLoop() {
	for {
		select {
		case msg, ok := <-b.conduit.Receive():
			if !ok {
				return
			}
			b.dispatch(msg)
		case <-b.done:
			return
		}
	}
}

func (b *Bridge) dispatch(msg Message) {
	b.mu.Lock()
	ch, ok := b.pending[msg.CorrelationID]
	if ok {
		delete(b.pending, msg.CorrelationID)
		b.reachable = true
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debug().Str("kind", string(msg.Kind)).Msg("dropping unsolicited worker message")
		return
	}
	ch <- msg
}

func (b *Bridge) setState(s State, reachable bool) {
	b.mu.Lock()
	b.state = s
	b.reachable = reachable
	b.mu.Unlock()
}

func (b *Bridge) markUnreachable() {
	b.mu.Lock()
	b.reachable = false
	b.mu.Unlock()
}
