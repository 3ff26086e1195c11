package cache

import (
	"testing"
	"time"
)

func TestQuoteCacheFreshHit(t *testing.T) {
	c := NewQuoteCache(time.Minute)
	c.Set("KRW-BTC", 100)

	price, ok := c.Get("KRW-BTC")
	if !ok || price != 100 {
		t.Fatalf("got (%v, %v), want (100, true)", price, ok)
	}
	if _, ok := c.Get("KRW-ETH"); ok {
		t.Fatal("unknown symbol should miss")
	}
}

func TestQuoteCacheExpiry(t *testing.T) {
	c := NewQuoteCache(time.Second)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("KRW-BTC", 100)
	clock = clock.Add(2 * time.Second)
	if _, ok := c.Get("KRW-BTC"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestQuoteCachePurge(t *testing.T) {
	c := NewQuoteCache(time.Second)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("KRW-BTC", 100)
	clock = clock.Add(2 * time.Second)
	c.Set("KRW-ETH", 50)

	if removed := c.Purge(); removed != 1 {
		t.Fatalf("purged %d, want 1", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}
