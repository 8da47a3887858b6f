package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a checkout response is replayed for.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "salonpay:checkout"

// Cache stores serialized responses by idempotency key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key builds the cache key for a checkout of orderID with provider.
func Key(provider, orderID string) string {
	return keyPrefix + ":" + provider + ":" + orderID
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

type entry struct {
	value   []byte
	expires time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	nextGC  time.Time
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) Cache {
	return newMemoryCache(ttl, time.Now)
}

func newMemoryCache(ttl time.Duration, now func() time.Time) *memoryCache {
	return &memoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		nextGC:  now().Add(ttl),
		now:     now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.expires.After(now) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expires: now.Add(c.ttl)}
	if now.After(c.nextGC) {
		for k, e := range c.entries {
			if !e.expires.After(now) {
				delete(c.entries, k)
			}
		}
		c.nextGC = now.Add(c.ttl)
	}
	return nil
}

// New builds a Redis cache and falls back to memory when addr is empty or
// Redis is unreachable. The ping error is returned alongside the fallback.
func New(addr, password string, ttl time.Duration) (Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if addr == "" {
		return NewMemoryCache(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemoryCache(ttl), err
	}

	return &redisCache{client: client, ttl: ttl}, nil
}
