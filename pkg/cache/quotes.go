// Package cache provides a TTL quote cache so repeated price lookups
// inside one poll cycle do not re-hit the exchange API.
package cache

import (
	"sync"
	"time"
)

type quoteEntry struct {
	price     float64
	updatedAt time.Time
}

// QuoteCache stores the last observed price per symbol with an age bound.
type QuoteCache struct {
	mu    sync.RWMutex
	items map[string]quoteEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewQuoteCache builds a cache whose entries expire after ttl.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		items: make(map[string]quoteEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Set records the latest price for symbol.
func (c *QuoteCache) Set(symbol string, price float64) {
	c.mu.Lock()
	c.items[symbol] = quoteEntry{price: price, updatedAt: c.now()}
	c.mu.Unlock()
}

// Get returns the cached price when it is still within the TTL.
func (c *QuoteCache) Get(symbol string) (float64, bool) {
	c.mu.RLock()
	entry, ok := c.items[symbol]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.updatedAt) > c.ttl {
		return 0, false
	}
	return entry.price, true
}

// Len returns the number of entries, expired ones included.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge drops expired entries and reports how many were removed.
func (c *QuoteCache) Purge() int {
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	c.mu.Lock()
	for sym, entry := range c.items {
		if entry.updatedAt.Before(cutoff) {
			delete(c.items, sym)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}
