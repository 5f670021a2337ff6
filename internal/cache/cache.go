// Package cache stores complete /solve responses keyed by a SHA-256
// fingerprint of the policy and the raw request body, selected the way the teacher selects
// its event broker (internal/api/server.go: REDIS_URL set picks the
// go-redis backend, unset picks the in-process map).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the result-cache interface SolveHandler depends on. Get
// reports a cache miss via ok=false, never via an error; errors are
// reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// New selects a backend from REDIS_URL exactly the way NewServer picks
// an EventBroker in the teacher: Redis if set, otherwise in-memory.
func New(redisURL string) (Cache, error) {
	if redisURL == "" {
		return NewMemory(), nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(opt)}, nil
}

// Memory is an in-process cache with no eviction beyond TTL expiry,
// adequate for a single solver instance's result cache.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	value   []byte
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.entries[key] = memEntry{value: value, expires: expires}
	return nil
}

// Redis backs the cache with github.com/redis/go-redis/v9, mirroring
// the connection setup in internal/api/broker_redis.go.
type Redis struct {
	rdb *redis.Client
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}
