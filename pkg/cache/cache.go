package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is the read-through cache used by the catalog and the in-memory draft store.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)

	// GetOrSet returns the cached value or stores the result of compute.
	// compute runs at most once per miss; errors are not cached.
	GetOrSet(key string, ttl time.Duration, compute func() (interface{}, error)) (interface{}, error)

	Delete(key string)
	// DeletePrefix drops every key starting with prefix and returns how many were removed.
	DeletePrefix(prefix string) int
	Clear()
	Size() int
	Stop()
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// InMemoryCache is a mutex-guarded map with per-key TTL and a janitor goroutine.
type InMemoryCache struct {
	mu       sync.RWMutex
	items    map[string]*entry
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewInMemoryCache starts a cache whose expired entries are swept every cleanupInterval.
func NewInMemoryCache(cleanupInterval time.Duration) *InMemoryCache {
	c := &InMemoryCache{
		items:    make(map[string]*entry),
		interval: cleanupInterval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *InMemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || e.expired(c.now()) {
		return nil, false
	}
	return e.value, true
}

func (c *InMemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &entry{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *InMemoryCache) GetOrSet(key string, ttl time.Duration, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have filled it while we waited for the write lock
	if e, ok := c.items[key]; ok && !e.expired(c.now()) {
		return e.value, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.items[key] = &entry{value: v, expiresAt: c.now().Add(ttl)}
	return v, nil
}

func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *InMemoryCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
}

// Size counts stored entries, including expired ones not yet swept.
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the janitor. Safe to call more than once.
func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *InMemoryCache) janitor() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *InMemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
		}
	}
}
