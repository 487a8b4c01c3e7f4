package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryCache built by NewMemory. A CLI session
// sees a handful of lab reports and images, so this is never reached in
// normal use.
const DefaultMaxEntries = 512

// MemoryCache keeps values in process. Expired entries are dropped lazily:
// reads ignore them and writes sweep at most once per sweepEvery.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// NewMemory returns a cache whose Set keeps values for ttl
func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.items, key)
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

func (c *MemoryCache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *MemoryCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.sweepEvery {
		c.sweep(now)
	}
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictSoonest()
	}
	c.items[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}

// Len counts stored entries, expired ones included until the next sweep
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// sweep must be called with mu held
func (c *MemoryCache) sweep(now time.Time) {
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

// evictSoonest drops the entry closest to expiry. Must be called with mu held.
func (c *MemoryCache) evictSoonest() {
	var (
		victim string
		first  time.Time
		found  bool
	)
	for key, e := range c.items {
		if !found || e.expiresAt.Before(first) {
			victim, first, found = key, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}

var _ Cache = (*MemoryCache)(nil)
