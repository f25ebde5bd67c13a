package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/ports/cache"
)

type entry struct {
	value     string
	expiresAt time.Time // нулевое время = без TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache in-memory фолбэк для окружений без Redis.
// Протухшие ключи вычищаются лениво при чтении.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache создаёт новый in-memory кэш
func NewCache() cache.Cache {
	return &Cache{
		entries: make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("key %s not found", key)
	}

	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", fmt.Errorf("key %s not found", key)
	}

	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := c.Get(ctx, key); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}
