package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medref/catalog-cache/internal/testutil"
	"github.com/medref/catalog-cache/pkg/invalidation"
	"github.com/medref/catalog-cache/pkg/policy"
)

// memVersions is an in-memory version store for tests.
type memVersions struct {
	mu      sync.Mutex
	version string
}

func (v *memVersions) Load(context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version, nil
}

func (v *memVersions) Save(_ context.Context, version string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version = version
	return nil
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = -1
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManager_Lifecycle(t *testing.T) {
	worker := testutil.NewLoopbackWorker("/api/diagnoses?icd10=I10")
	m := newTestManager(t, Config{Conduit: worker})

	stats := m.Stats(context.Background())
	if !stats.WorkerAvailable {
		t.Error("worker should be available after Initialize")
	}
	if stats.Worker == nil || stats.Worker.Entries != 1 {
		t.Errorf("worker stats = %+v, want 1 entry", stats.Worker)
	}
}

func TestManager_DegradedWithoutWorker(t *testing.T) {
	worker := testutil.NewLoopbackWorker()
	worker.SetSilent(true)

	m, err := New(Config{
		Conduit:       worker,
		BridgeTimeout: 50 * time.Millisecond,
		SweepInterval: -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	// A dead peer degrades the worker tier; Initialize still succeeds.
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize should not fail on worker registration: %v", err)
	}

	stats := m.Stats(context.Background())
	if stats.WorkerAvailable {
		t.Error("worker should be unavailable")
	}
	if stats.Worker != nil {
		t.Error("worker stats should be nil when the peer is unreachable")
	}
}

func TestManager_NoConduit(t *testing.T) {
	m := newTestManager(t, Config{})

	stats := m.Stats(context.Background())
	if stats.WorkerAvailable || stats.Worker != nil {
		t.Error("manager without a conduit has no worker tier")
	}
}

func TestManager_SetOnline(t *testing.T) {
	worker := testutil.NewLoopbackWorker()
	m := newTestManager(t, Config{Conduit: worker})

	m.SetOnline(false)
	if m.Stats(context.Background()).WorkerAvailable {
		t.Error("worker should be unavailable while offline")
	}

	m.SetOnline(true)
	if !m.Stats(context.Background()).WorkerAvailable {
		t.Error("worker should be available again when back online")
	}

	// No worker tier: purely a no-op.
	newTestManager(t, Config{}).SetOnline(false)
}

func TestManager_GetOrFetch(t *testing.T) {
	m := newTestManager(t, Config{})

	var fetches atomic.Int64
	fetch := func(context.Context) (any, error) {
		fetches.Add(1)
		return "drug record", nil
	}

	value, err := m.GetOrFetch(context.Background(), "/api/drugs", map[string]string{"ndc": "0002-8215"}, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if value != "drug record" {
		t.Errorf("value = %v", value)
	}

	// Second call is served from memory.
	if _, err := m.GetOrFetch(context.Background(), "/api/drugs", map[string]string{"ndc": "0002-8215"}, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestManager_GetOrFetchError(t *testing.T) {
	m := newTestManager(t, Config{})

	wantErr := errors.New("backend down")
	_, err := m.GetOrFetch(context.Background(), "/api/drugs", nil, func(context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}

	// Errors are not cached.
	if m.Store().Len() != 0 {
		t.Error("failed fetches must not be stored")
	}
}

// TestManager_GetOrFetchDeduplicates verifies concurrent misses for the
// same key share one fetch.
func TestManager_GetOrFetchDeduplicates(t *testing.T) {
	m := newTestManager(t, Config{})

	var fetches atomic.Int64
	gate := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		fetches.Add(1)
		<-gate
		return "shared", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.GetOrFetch(context.Background(), "/api/search", map[string]string{"q": "metformin"}, fetch)
			if err != nil {
				t.Errorf("GetOrFetch: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Let all callers reach the singleflight barrier, then release.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1 (singleflight)", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("results[%d] = %v", i, v)
		}
	}
}

func TestManager_StaleWhileRevalidate(t *testing.T) {
	profiles := map[policy.ResourceClass]policy.Profile{
		policy.ClassAPI: {
			Class:                policy.ClassAPI,
			TTL:                  20 * time.Millisecond,
			MaxEntries:           10,
			StaleWhileRevalidate: 10 * time.Second,
			Tier:                 policy.TierMemory,
		},
	}
	m := newTestManager(t, Config{Profiles: profiles})

	var fetches atomic.Int64
	fetch := func(context.Context) (any, error) {
		if fetches.Add(1) == 1 {
			return "v1", nil
		}
		return "v2", nil
	}

	if _, err := m.GetOrFetch(context.Background(), "/api/diagnoses", nil, fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}

	// Let the entry go stale but stay within the revalidation window.
	time.Sleep(40 * time.Millisecond)

	value, err := m.GetOrFetch(context.Background(), "/api/diagnoses", nil, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if value != "v1" {
		t.Errorf("stale read = %v, want v1 served while revalidating", value)
	}

	// The background refresh lands the fresh value.
	deadline := time.After(2 * time.Second)
	for {
		if v, ok := m.Store().Get("/api/diagnoses"); ok && v == "v2" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("background revalidation never stored the fresh value")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_VersionCheckOnInitialize(t *testing.T) {
	versions := &memVersions{version: "1.0.0"}
	worker := testutil.NewLoopbackWorker("/static/js/main.js")

	var notifications []invalidation.Notification
	var notifyMu sync.Mutex

	m, err := New(Config{
		Conduit:       worker,
		Versions:      versions,
		AppVersion:    "1.0.1",
		SweepInterval: -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()
	m.Subscribe(func(n invalidation.Notification) {
		notifyMu.Lock()
		notifications = append(notifications, n)
		notifyMu.Unlock()
	})

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if v, _ := versions.Load(context.Background()); v != "1.0.1" {
		t.Errorf("marker = %q, want 1.0.1", v)
	}
	if got := worker.InvalidatedPatterns(); len(got) == 0 {
		t.Error("version change should fan out to the worker tier")
	}

	notifyMu.Lock()
	defer notifyMu.Unlock()
	if len(notifications) != 1 || notifications[0].Type != invalidation.NotifyNewVersion {
		t.Errorf("notifications = %+v", notifications)
	}
}

func TestManager_OnEventUsesDefaultRules(t *testing.T) {
	m := newTestManager(t, Config{})

	m.Store().Set("/api/diagnoses?icd10=E11.9", 1, 0)
	m.Store().Set("/static/js/main.js", 2, 0)

	m.OnEvent(context.Background(), invalidation.EventUserLogout)

	if _, ok := m.Store().Get("/api/diagnoses?icd10=E11.9"); ok {
		t.Error("logout should drop API entries")
	}
	if _, ok := m.Store().Get("/static/js/main.js"); !ok {
		t.Error("logout must not touch static entries")
	}
}

func TestManager_Clear(t *testing.T) {
	worker := testutil.NewLoopbackWorker("/api/drugs?page=1")
	m := newTestManager(t, Config{Conduit: worker})

	m.Store().Set("/api/drugs?page=1", 1, 0)

	m.Clear(context.Background())

	if m.Store().Len() != 0 {
		t.Error("Clear should empty the memory tier")
	}
	if worker.EntryCount() != 0 {
		t.Error("Clear should wipe the worker tier")
	}
}

func TestManager_Prefetch(t *testing.T) {
	m := newTestManager(t, Config{})

	urls := []string{"/api/diagnoses?page=1", "/api/diagnoses?page=2", "/api/broken"}
	results := m.Prefetch(context.Background(), urls,
		func(_ context.Context, resourceURL string) (any, error) {
			if resourceURL == "/api/broken" {
				return nil, errors.New("boom")
			}
			return "warmed:" + resourceURL, nil
		}, DefaultPrefetchConfig())

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	// Warmed entries are served from memory.
	if _, ok := m.Store().Get("/api/diagnoses?page=1"); !ok {
		t.Error("warmed entry should be cached")
	}
}

func TestManager_ResolveDelegates(t *testing.T) {
	m := newTestManager(t, Config{})

	key, profile := m.Resolve("/api/drugs", map[string]string{"ndc": "0074-3799"})
	if key != "/api/drugs?ndc=0074-3799" {
		t.Errorf("key = %q", key)
	}
	if profile.Class != policy.ClassAPI {
		t.Errorf("class = %v", profile.Class)
	}
}
