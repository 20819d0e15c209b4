package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockCatalog is a configurable mock catalog backend for testing
// fetch-through behavior.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
}

// NewMockCatalog creates a mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, ok := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		handler(w, r)
	}))

	return mock
}

// SetJSONResponse configures a path to return a JSON body.
func (m *MockCatalog) SetJSONResponse(path, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// URL returns the mock server base URL.
func (m *MockCatalog) URL() string { return m.server.URL }

// Requests returns how many requests the mock has served.
func (m *MockCatalog) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Close shuts the mock server down.
func (m *MockCatalog) Close() { m.server.Close() }
