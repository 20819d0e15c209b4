package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medref/catalog-cache/pkg/bridge"
	"github.com/medref/catalog-cache/pkg/invalidation"
	"github.com/medref/catalog-cache/pkg/logging"
	"github.com/medref/catalog-cache/pkg/manager"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	upstreamURL := getEnv("UPSTREAM_URL", "http://localhost:9000")
	redisURL := os.Getenv("REDIS_URL")
	appVersion := getEnv("APP_VERSION", "0.1.0")
	versionFile := getEnv("VERSION_FILE", ".catalog-cache-version")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "1",
		Output: os.Stderr,
	})

	cfg := manager.Config{
		AppVersion: appVersion,
		Logger:     &logger,
	}

	// Redis is optional: without it the worker tier is absent and the
	// version marker lives in a local file.
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		ctx := context.Background()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("failed to connect to Redis")
		}
		logger.Info().Str("addr", redisURL).Msg("connected to Redis")

		cfg.Conduit = bridge.NewRedisConduit(redisClient, "", "", logger)
		cfg.Versions = invalidation.NewRedisVersionStore(redisClient)
	} else {
		cfg.Versions = invalidation.NewFileVersionStore(versionFile)
	}

	m, err := manager.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cache manager")
	}
	m.Subscribe(func(n invalidation.Notification) {
		logger.Info().Str("type", string(n.Type)).Str("detail", n.Detail).Msg("cache notification")
	})
	if err := m.Initialize(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize cache manager")
	}
	defer m.Close()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/cache/stats", statsHandler(m))
	http.HandleFunc("/cache/events", eventsHandler(m))
	http.HandleFunc("/cache/clear", clearHandler(m))
	http.HandleFunc("/catalog/", catalogHandler(m, upstreamURL, logger))

	addr := ":" + port
	logger.Info().Str("addr", addr).Str("upstream", upstreamURL).Str("version", appVersion).
		Msg("starting catalog proxy")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// statsHandler serves the combined per-tier statistics snapshot.
func statsHandler(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Stats(ctx)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// eventsHandler lets the application dispatch named cache events
// (userLogin, userLogout, dataUpdate, appUpdate).
func eventsHandler(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing event name", http.StatusBadRequest)
			return
		}
		m.OnEvent(r.Context(), name)
		w.WriteHeader(http.StatusAccepted)
	}
}

func clearHandler(m *manager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		m.Clear(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

// catalogHandler serves catalog lookups through the cache. On miss the
// resource is fetched from the upstream backend and stored with its
// resolved policy.
func catalogHandler(m *manager.Manager, upstreamURL string, logger zerolog.Logger) http.HandlerFunc {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	return func(w http.ResponseWriter, r *http.Request) {
		// Example: /catalog/api/diagnoses -> /api/diagnoses
		resource := r.URL.Path[len("/catalog"):]

		params := map[string]string{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		value, err := m.GetOrFetch(ctx, resource, params, func(ctx context.Context) (any, error) {
			return fetchUpstream(ctx, httpClient, upstreamURL+resource, r.URL.RawQuery)
		})
		if err != nil {
			logger.Warn().Err(err).Str("resource", resource).Msg("catalog fetch failed")
			http.Error(w, fmt.Sprintf("catalog fetch failed: %v", err), http.StatusBadGateway)
			return
		}

		body, ok := value.([]byte)
		if !ok {
			http.Error(w, "unexpected cached payload", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			logger.Warn().Err(err).Msg("failed to write response")
		}
	}
}

// fetchUpstream performs the real catalog backend request.
func fetchUpstream(ctx context.Context, client *http.Client, url, rawQuery string) (any, error) {
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	return body, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
