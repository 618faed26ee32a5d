// Package cache stores assembled dashboard responses for a short TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a byte-value store with per-entry expiry.
type Cache interface {
	// Get reports found=false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const keyPrefix = "salesdash:dashboard:"

var keyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("salesdash.dashboard"))

// Key derives a stable cache key from the canonical parts of a query.
func Key(parts ...string) string {
	return keyPrefix + uuid.NewSHA1(keyNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Open returns a Redis cache for redisURL, or an in-process Memory cache when
// redisURL is empty. The returned close func releases the Redis client.
func Open(ctx context.Context, redisURL string) (Cache, func() error, error) {
	if strings.TrimSpace(redisURL) == "" {
		return NewMemory(), func() error { return nil }, nil
	}
	client, err := Connect(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return NewRedis(client), client.Close, nil
}

// Redis is a Cache backed by a go-redis client.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache used when Redis is not configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value. A ttl <= 0 never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

var (
	_ Cache = (*Redis)(nil)
	_ Cache = (*Memory)(nil)
)
