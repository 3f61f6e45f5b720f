// Package cache is a small string cache used for read-through lookups of
// immutable records.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores string values by key. Get returns "" with a nil error on a miss.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GenerateKey(operation, key string) string
}

type redisCache struct {
	client      *redis.Client
	serviceName string
}

// NewRedisCache connects lazily to addr; keys are namespaced by serviceName.
func NewRedisCache(addr, serviceName string) Cache {
	return &redisCache{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisCache) GenerateKey(operation, key string) string {
	return generateKey(r.serviceName, operation, key)
}

func generateKey(service, operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", service, operation, key)
}

// Memory is an in-process Cache with expiry, for tests and local runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	service string
	nowFunc func() time.Time

	Hits int
}

type memEntry struct {
	value   string
	expires time.Time
}

func NewMemory(service string) *Memory {
	return &Memory{entries: map[string]memEntry{}, service: service, nowFunc: time.Now}
}

func (m *Memory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = m.nowFunc().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", nil
	}
	if !e.expires.IsZero() && m.nowFunc().After(e.expires) {
		delete(m.entries, key)
		return "", nil
	}
	m.Hits++
	return e.value, nil
}

func (m *Memory) GenerateKey(operation, key string) string {
	return generateKey(m.service, operation, key)
}
