package invalidation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisKeyAppVersion is where the last known app version marker lives.
const RedisKeyAppVersion = "catalog:cache:app_version"

// VersionStore persists the "last known app version" marker, the one
// piece of durable state this subsystem owns. Load returns an empty
// string when no marker has been written yet.
type VersionStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, version string) error
}

// RedisVersionStore persists the version marker in Redis.
type RedisVersionStore struct {
	client *redis.Client
}

// NewRedisVersionStore creates a Redis-backed version store.
func NewRedisVersionStore(client *redis.Client) *RedisVersionStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisVersionStore{client: client}
}

// Load reads the persisted version marker.
func (s *RedisVersionStore) Load(ctx context.Context) (string, error) {
	version, err := s.client.Get(ctx, RedisKeyAppVersion).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis get version marker: %w", err)
	}
	return version, nil
}

// Save writes the version marker.
func (s *RedisVersionStore) Save(ctx context.Context, version string) error {
	if err := s.client.Set(ctx, RedisKeyAppVersion, version, 0).Err(); err != nil {
		return fmt.Errorf("redis set version marker: %w", err)
	}
	return nil
}

// FileVersionStore persists the version marker in a local file, for
// hosts without Redis.
type FileVersionStore struct {
	path string
}

// NewFileVersionStore creates a file-backed version store.
func NewFileVersionStore(path string) *FileVersionStore {
	return &FileVersionStore{path: path}
}

// Load reads the persisted version marker. A missing file means no
// marker has been written yet.
func (s *FileVersionStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read version marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the version marker.
func (s *FileVersionStore) Save(_ context.Context, version string) error {
	if err := os.WriteFile(s.path, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}
	return nil
}
