package quote

import (
	"sync"
	"time"
)

type cacheEntry struct {
	quote     Quote
	expiresAt time.Time
}

// quoteCache is a bounded-TTL in-process cache so snapshot bursts do
// not hammer the quote API.
type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *quoteCache) get(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Now().After(entry.expiresAt) {
		return Quote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) set(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[q.Symbol] = cacheEntry{
		quote:     q,
		expiresAt: time.Now().Add(c.ttl),
	}
}
