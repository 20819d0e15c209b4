package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/medref/catalog-cache/pkg/bridge"
	"github.com/medref/catalog-cache/pkg/invalidation"
	"github.com/medref/catalog-cache/pkg/memstore"
	"github.com/medref/catalog-cache/pkg/policy"
)

// Config holds the manager configuration.
type Config struct {
	// Profiles overrides entries of the default policy table.
	Profiles map[policy.ResourceClass]policy.Profile

	// MaxEntries bounds the in-memory store (default memstore.DefaultMaxEntries).
	MaxEntries int

	// Conduit is the transport to the peer worker cache. Optional; when
	// nil, the worker tier is absent and worker operations are no-ops.
	Conduit bridge.Conduit

	// BridgeTimeout bounds worker request/response exchanges
	// (default bridge.DefaultTimeout).
	BridgeTimeout time.Duration

	// Versions persists the app version marker. Optional; required for
	// the version-change trigger.
	Versions invalidation.VersionStore

	// AppVersion is the running application version, checked against the
	// persisted marker during Initialize. Empty skips the check.
	AppVersion string

	// Rules is the invalidation rule set (default invalidation.DefaultRules).
	Rules []invalidation.Rule

	// SweepInterval is the expiry sweep period. Zero means the
	// coordinator default; a negative value disables the sweep.
	SweepInterval time.Duration

	// Logger is the structured logger. Zero value uses the global logger.
	Logger *zerolog.Logger
}

// Stats aggregates statistics across tiers. Worker stats are nil when
// the peer did not reply; WorkerAvailable reflects bridge availability
// at snapshot time.
type Stats struct {
	Memory          memstore.Stats      `json:"memory"`
	Worker          *bridge.WorkerStats `json:"worker,omitempty"`
	WorkerAvailable bool                `json:"worker_available"`
}

// Manager is the composed cache subsystem.
type Manager struct {
	resolver    *policy.Resolver
	store       *memstore.Store
	bridge      *bridge.Bridge
	coordinator *invalidation.Coordinator
	logger      zerolog.Logger
	appVersion  string

	group singleflight.Group
}

// New constructs a manager. Call Initialize before use and Close on
// teardown.
func New(cfg Config) (*Manager, error) {
	logger := log.With().Str("component", "cache-manager").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	store := memstore.New(cfg.MaxEntries)

	var b *bridge.Bridge
	if cfg.Conduit != nil {
		b = bridge.New(bridge.Config{
			Conduit: cfg.Conduit,
			Timeout: cfg.BridgeTimeout,
			Logger:  logger,
		})
	}

	coordCfg := invalidation.Config{
		Store:         store,
		Versions:      cfg.Versions,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	}
	if b != nil {
		coordCfg.Bridge = b
	}
	coordinator := invalidation.NewCoordinator(coordCfg)

	rules := cfg.Rules
	if rules == nil {
		rules = invalidation.DefaultRules()
	}
	coordinator.RegisterRule(rules...)

	return &Manager{
		resolver:    policy.NewResolver(cfg.Profiles),
		store:       store,
		bridge:      b,
		coordinator: coordinator,
		logger:      logger,
		appVersion:  cfg.AppVersion,
	}, nil
}

// Initialize brings the subsystem up: worker registration (best-effort),
// periodic sweep, and the version-change check. A failed worker
// registration degrades the worker tier to no-ops; it never fails
// Initialize.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.bridge != nil {
		if err := m.bridge.Initialize(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("worker tier degraded")
		}
	}

	m.coordinator.Start()

	if m.appVersion != "" {
		if _, err := m.coordinator.CheckVersion(ctx, m.appVersion); err != nil {
			return err
		}
	}

	return nil
}

// Close tears the subsystem down: stops the sweep and releases the
// bridge.
func (m *Manager) Close() error {
	m.coordinator.Stop()
	if m.bridge != nil {
		return m.bridge.Close()
	}
	return nil
}

// Resolve maps a resource URL and parameters to its cache key and
// policy profile.
func (m *Manager) Resolve(resourceURL string, params map[string]string) (string, policy.Profile) {
	return m.resolver.Resolve(resourceURL, params)
}

// OnEvent forwards a named application event to the coordinator.
func (m *Manager) OnEvent(ctx context.Context, eventName string) {
	m.coordinator.OnEvent(ctx, eventName)
}

// InvalidateByPattern removes matching in-memory entries and forwards
// to the given tiers. See the coordinator for counting semantics.
func (m *Manager) InvalidateByPattern(ctx context.Context, pattern string, tiers []policy.StorageTier) (int, error) {
	return m.coordinator.InvalidateByPattern(ctx, pattern, tiers)
}

// Clear empties all tiers and notifies subscribers.
func (m *Manager) Clear(ctx context.Context) {
	m.coordinator.ClearAll(ctx)
}

// SetOnline forwards host connectivity signals to the worker bridge.
// A no-op when the worker tier is absent.
func (m *Manager) SetOnline(online bool) {
	if m.bridge != nil {
		m.bridge.SetOnline(online)
	}
}

// Subscribe registers a notification callback for cache state changes.
func (m *Manager) Subscribe(fn invalidation.NotifyFunc) {
	m.coordinator.Subscribe(fn)
}

// Stats returns a statistics snapshot across tiers. Worker stats are
// fetched through the bridge and bounded by its timeout; when the peer
// does not reply, Worker is nil and the memory snapshot still returns.
func (m *Manager) Stats(ctx context.Context) Stats {
	stats := Stats{Memory: m.store.Stats()}

	if m.bridge == nil {
		return stats
	}

	stats.WorkerAvailable = m.bridge.IsAvailable()
	if workerStats, err := m.bridge.RequestStats(ctx); err == nil {
		stats.Worker = workerStats
	}

	return stats
}

// Store exposes the in-memory tier for direct operations.
func (m *Manager) Store() *memstore.Store {
	return m.store
}
