package tools

import (
	"sync"
	"time"
)

// idempotencyCache remembers successful mutating results for a bounded
// window so a retried call with the same key replays the cached payload
// instead of re-invoking the collaborator.
type idempotencyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]idempotencyEntry
	now     func() time.Time
}

type idempotencyEntry struct {
	payload map[string]any
	expires time.Time
}

func newIdempotencyCache(ttl time.Duration) *idempotencyCache {
	return &idempotencyCache{
		ttl:     ttl,
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

func (c *idempotencyCache) get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.payload, true
}

func (c *idempotencyCache) put(key string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	c.entries[key] = idempotencyEntry{
		payload: payload,
		expires: c.now().Add(c.ttl),
	}
}

// prune drops expired entries. Called under the lock on every write, which
// keeps the map bounded without a background goroutine.
func (c *idempotencyCache) prune() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}
