package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// DefaultSweepInterval is how often NewMemory evicts expired entries.
const DefaultSweepInterval = time.Minute

// WithClock replaces the time source, letting tests advance time.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// WithSweepInterval sets how often expired entries are evicted in the
// background. A non-positive interval disables the janitor.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *MemoryCache) { c.sweepEvery = d }
}

// MemoryCache is an in-process Cache. Expired entries are dropped on read
// and by a janitor goroutine that runs Sweep until Close.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	now        func() time.Time
	closed     bool
	sweepEvery time.Duration
	stop       chan struct{}
}

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepEvery > 0 {
		c.stop = make(chan struct{})
		go c.janitor(c.sweepEvery)
	}
	return c
}

func (c *MemoryCache) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, false, ErrClosed
	}
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if entry.expired(c.now()) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key.
		if cur, ok := c.entries[key]; ok && cur.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.entries[key] = entry
	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ping implements Cache.
func (c *MemoryCache) Ping(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.entries = nil
	if c.stop != nil {
		close(c.stop)
	}
	return nil
}
