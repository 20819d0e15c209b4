package invalidation

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/medref/catalog-cache/pkg/policy"
)

// DefaultSweepInterval is the default period of the expiry sweep.
const DefaultSweepInterval = 60 * time.Second

// Prometheus metrics for invalidation activity.
var (
	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_invalidations_total",
		Help: "Total invalidation fan-outs by trigger",
	}, []string{"trigger"})

	invalidationRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_invalidation_removed_total",
		Help: "Total in-memory entries removed by invalidation",
	})

	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_sweep_runs_total",
		Help: "Total periodic sweep runs",
	})

	patternErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_pattern_errors_total",
		Help: "Total invalidation patterns that failed to compile",
	})
)

// MemoryStore is the subset of the in-memory store the coordinator
// dispatches to. All mutation goes through these public operations.
type MemoryStore interface {
	Keys() []string
	Delete(key string) bool
	Clear()
	SweepExpired() int
	Len() int
}

// WorkerBridge forwards invalidation to the worker tier.
type WorkerBridge interface {
	Invalidate(ctx context.Context, pattern string, tier policy.StorageTier)
	IsAvailable() bool
}

// Config holds coordinator configuration.
type Config struct {
	// Store is the in-memory tier. Required.
	Store MemoryStore

	// Bridge is the worker tier conduit. Optional; when nil, worker-tier
	// fan-out is skipped.
	Bridge WorkerBridge

	// Versions persists the app version marker. Optional; required only
	// for CheckVersion.
	Versions VersionStore

	// SweepInterval is the expiry sweep period. Zero means
	// DefaultSweepInterval; a negative value disables the sweep.
	SweepInterval time.Duration

	// Logger is the structured logger (default: disabled).
	Logger zerolog.Logger
}

// Coordinator owns the invalidation rule set, listens for triggers, and
// fans invalidation out to the stores.
type Coordinator struct {
	store    MemoryStore
	bridge   WorkerBridge
	versions VersionStore
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	rules       []Rule
	subscribers []NotifyFunc
	stop        chan struct{}
	running     bool
	wg          sync.WaitGroup
}

// NewCoordinator creates a coordinator. The store is required.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Store == nil {
		panic("coordinator store cannot be nil")
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Coordinator{
		store:    cfg.Store,
		bridge:   cfg.Bridge,
		versions: cfg.Versions,
		interval: cfg.SweepInterval,
		logger:   cfg.Logger,
	}
}

// RegisterRule adds rules to the rule set.
func (c *Coordinator) RegisterRule(rules ...Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rules...)
}

// Subscribe registers a notification callback. Subscription is explicit;
// there is no ambient event bus.
func (c *Coordinator) Subscribe(fn NotifyFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// OnEvent fires all rules registered for the named application event.
func (c *Coordinator) OnEvent(ctx context.Context, eventName string) {
	removed := 0
	for _, rule := range c.rulesFor(TriggerEvent) {
		if rule.Event != eventName {
			continue
		}
		removed += c.applyRule(ctx, rule)
	}
	invalidationsTotal.WithLabelValues(string(TriggerEvent)).Inc()
	c.logger.Debug().
		Str("event", eventName).
		Int("removed", removed).
		Msg("event invalidation applied")
}

// InvalidateByPattern removes all in-memory entries whose key matches
// the pattern and, when tiers include the worker tier, forwards the
// command to the bridge. It returns the count of in-memory entries
// removed; worker-tier removals are requested, not confirmed, and are
// never part of the count. A malformed pattern returns an error and
// removes nothing.
func (c *Coordinator) InvalidateByPattern(ctx context.Context, pattern string, tiers []policy.StorageTier) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		patternErrorsTotal.Inc()
		return 0, fmt.Errorf("compile invalidation pattern %q: %w", pattern, err)
	}

	memory := len(tiers) == 0
	worker := false
	for _, tier := range tiers {
		switch tier {
		case policy.TierMemory:
			memory = true
		case policy.TierWorker:
			worker = true
		}
		// browser and cdn tiers are governed by response headers; there
		// is nothing to remove locally.
	}

	removed := 0
	if memory {
		for _, key := range c.store.Keys() {
			if re.MatchString(key) && c.store.Delete(key) {
				removed++
			}
		}
		invalidationRemoved.Add(float64(removed))
	}

	if worker && c.bridge != nil {
		c.bridge.Invalidate(ctx, pattern, policy.TierWorker)
	}

	return removed, nil
}

// CheckVersion compares the persisted app version marker against the
// running version. On mismatch it fires all versionChange rules,
// persists the new marker, and notifies subscribers. The first check
// ever just records the version. Returns whether an invalidation ran.
func (c *Coordinator) CheckVersion(ctx context.Context, current string) (bool, error) {
	if c.versions == nil {
		return false, fmt.Errorf("no version store configured")
	}

	persisted, err := c.versions.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load version marker: %w", err)
	}

	if persisted == "" {
		if err := c.versions.Save(ctx, current); err != nil {
			return false, fmt.Errorf("save version marker: %w", err)
		}
		return false, nil
	}

	if persisted == current {
		return false, nil
	}

	removed := 0
	rules := c.rulesFor(TriggerVersionChange)
	if len(rules) == 0 {
		// No explicit rules: drop everything version-scoped we own.
		rules = []Rule{{
			Trigger:        TriggerVersionChange,
			TargetPatterns: []string{".*"},
			AffectedTiers:  []policy.StorageTier{policy.TierMemory, policy.TierWorker},
		}}
	}
	for _, rule := range rules {
		removed += c.applyRule(ctx, rule)
	}
	invalidationsTotal.WithLabelValues(string(TriggerVersionChange)).Inc()

	if err := c.versions.Save(ctx, current); err != nil {
		return true, fmt.Errorf("save version marker: %w", err)
	}

	c.logger.Info().
		Str("previous", persisted).
		Str("current", current).
		Int("removed", removed).
		Msg("app version changed, cache invalidated")
	c.notify(Notification{
		Type:   NotifyNewVersion,
		Detail: fmt.Sprintf("app updated from %s to %s, cached data refreshed", persisted, current),
	})

	return true, nil
}

// ClearAll removes every in-memory entry, requests a full worker-tier
// invalidation, and notifies subscribers.
func (c *Coordinator) ClearAll(ctx context.Context) {
	c.store.Clear()
	if c.bridge != nil {
		c.bridge.Invalidate(ctx, ".*", policy.TierWorker)
	}
	c.notify(Notification{Type: NotifyCacheCleared, Detail: "cache cleared"})
}

// Start launches the periodic expiry sweep. It is a no-op when the
// sweep is disabled or already running.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.interval < 0 {
		return
	}
	c.running = true
	c.stop = make(chan struct{})

	c.wg.Add(1)
	go c.sweepLoop(c.stop)
	c.logger.Info().Dur("interval", c.interval).Msg("periodic sweep started")
}

// Stop cancels the periodic sweep. Safe to call repeatedly.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info().Msg("periodic sweep stopped")
}

// sweepLoop runs SweepExpired and time-triggered rules on each tick.
func (c *Coordinator) sweepLoop(stop chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runSweep()
		case <-stop:
			return
		}
	}
}

// runSweep performs one sweep pass. Exposed to tests via RunSweepNow.
func (c *Coordinator) runSweep() {
	removed := c.store.SweepExpired()
	sweepRunsTotal.Inc()

	for _, rule := range c.rulesFor(TriggerTime) {
		removed += c.applyRule(context.Background(), rule)
	}

	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("sweep removed expired entries")
	}
}

// RunSweepNow triggers one sweep pass immediately, outside the periodic
// schedule.
func (c *Coordinator) RunSweepNow() {
	c.runSweep()
}

// applyRule fans one rule out to its affected tiers. Pattern errors are
// caught per rule so one bad rule never blocks the others.
func (c *Coordinator) applyRule(ctx context.Context, rule Rule) int {
	removed := 0
	for _, pattern := range rule.TargetPatterns {
		tiers := rule.AffectedTiers
		if len(tiers) == 0 {
			tiers = []policy.StorageTier{policy.TierMemory}
		}
		n, err := c.InvalidateByPattern(ctx, pattern, tiers)
		if err != nil {
			c.logger.Error().Err(err).
				Str("trigger", string(rule.Trigger)).
				Str("pattern", pattern).
				Msg("invalidation rule failed")
			c.notify(Notification{
				Type:   NotifyCacheError,
				Detail: fmt.Sprintf("invalidation pattern %q failed: %v", pattern, err),
			})
			continue
		}
		removed += n
	}
	return removed
}

// rulesFor returns a snapshot of rules with the given trigger.
func (c *Coordinator) rulesFor(trigger Trigger) []Rule {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Rule
	for _, rule := range c.rules {
		if rule.Trigger == trigger {
			out = append(out, rule)
		}
	}
	return out
}

// notify delivers a notification to all subscribers.
func (c *Coordinator) notify(n Notification) {
	c.mu.Lock()
	subs := make([]NotifyFunc, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
