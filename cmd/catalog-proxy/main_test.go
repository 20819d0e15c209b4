package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medref/catalog-cache/internal/testutil"
	"github.com/medref/catalog-cache/pkg/invalidation"
	"github.com/medref/catalog-cache/pkg/logging"
	"github.com/medref/catalog-cache/pkg/manager"
)

func newTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	m, err := manager.New(manager.Config{SweepInterval: -1})
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestStatsEndpoint(t *testing.T) {
	m := newTestManager(t)
	m.Store().Set("/api/diagnoses", []byte(`[]`), 0)
	m.Store().Get("/api/diagnoses")

	req := httptest.NewRequest("GET", "/cache/stats", nil)
	w := httptest.NewRecorder()

	statsHandler(m)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var stats manager.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Memory.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Memory.Hits)
	}
	if stats.Memory.Entries != 1 {
		t.Errorf("entries = %d, want 1", stats.Memory.Entries)
	}
}

func TestEventsEndpoint(t *testing.T) {
	m := newTestManager(t)
	m.Store().Set("/api/drugs?page=1", []byte(`[]`), 0)

	req := httptest.NewRequest("POST", "/cache/events?name="+invalidation.EventUserLogout, nil)
	w := httptest.NewRecorder()

	eventsHandler(m)(w, req)

	if w.Result().StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Result().StatusCode)
	}
	if m.Store().Len() != 0 {
		t.Error("logout event should drop API entries")
	}
}

func TestEventsEndpoint_Validation(t *testing.T) {
	m := newTestManager(t)

	t.Run("missing_name", func(t *testing.T) {
		w := httptest.NewRecorder()
		eventsHandler(m)(w, httptest.NewRequest("POST", "/cache/events", nil))
		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Result().StatusCode)
		}
	})

	t.Run("wrong_method", func(t *testing.T) {
		w := httptest.NewRecorder()
		eventsHandler(m)(w, httptest.NewRequest("GET", "/cache/events?name=userLogout", nil))
		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Result().StatusCode)
		}
	})
}

func TestClearEndpoint(t *testing.T) {
	m := newTestManager(t)
	m.Store().Set("/api/drugs", []byte(`[]`), 0)

	w := httptest.NewRecorder()
	clearHandler(m)(w, httptest.NewRequest("POST", "/cache/clear", nil))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Result().StatusCode)
	}
	if m.Store().Len() != 0 {
		t.Error("clear should empty the store")
	}
}

func TestCatalogHandler_FetchThrough(t *testing.T) {
	upstream := testutil.NewMockCatalog()
	defer upstream.Close()
	upstream.SetJSONResponse("/api/diagnoses", `[{"icd10_code":"E11.9","condition_name":"Type 2 diabetes"}]`)

	m := newTestManager(t)
	handler := catalogHandler(m, upstream.URL(), logging.NewLogger("test"))

	get := func() string {
		req := httptest.NewRequest("GET", "/catalog/api/diagnoses", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
		}
		body, _ := io.ReadAll(w.Result().Body)
		return string(body)
	}

	first := get()
	second := get()

	if !strings.Contains(first, "E11.9") || first != second {
		t.Errorf("responses differ: %q vs %q", first, second)
	}

	// Second request is served from cache.
	if got := upstream.Requests(); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}
}

func TestCatalogHandler_UpstreamError(t *testing.T) {
	upstream := testutil.NewMockCatalog()
	defer upstream.Close()

	m := newTestManager(t)
	handler := catalogHandler(m, upstream.URL(), logging.NewLogger("test"))

	req := httptest.NewRequest("GET", "/catalog/api/missing", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Result().StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Exercise the store so cache metrics exist.
	m := newTestManager(t)
	m.Store().Set("/api/diagnoses", []byte(`[]`), 0)
	m.Store().Get("/api/diagnoses")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "catalog_cache_hits_total") {
		t.Error("Expected metrics output to contain catalog_cache_hits_total")
	}
}
