package appshelf

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// slowCache simulates a network-backed cache for testing parallel lookups
type slowCache struct {
	data    map[string]string
	mu      sync.RWMutex
	delay   time.Duration
	lookups int64
}

func newSlowCache(delay time.Duration) *slowCache {
	return &slowCache{
		data:  make(map[string]string),
		delay: delay,
	}
}

func (c *slowCache) Get(key string) (string, bool) {
	atomic.AddInt64(&c.lookups, 1)
	time.Sleep(c.delay)
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *slowCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func TestParallelCacheLookup_Basic(t *testing.T) {
	cache := newSlowCache(0)
	cache.Set("k1", "Hola")
	cache.Set("k2", "Mundo")

	var hits, misses int
	found := ParallelCacheLookup(cache, []string{"k1", "k2", "k3"}, func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	if len(found) != 2 {
		t.Errorf("Expected 2 hits, got %d", len(found))
	}
	if found["k1"] != "Hola" || found["k2"] != "Mundo" {
		t.Errorf("unexpected hits: %v", found)
	}
	if hits != 2 || misses != 1 {
		t.Errorf("observe saw %d hits / %d misses, want 2 / 1", hits, misses)
	}
}

func TestParallelCacheLookup_Deduplicates(t *testing.T) {
	cache := newSlowCache(0)

	ParallelCacheLookup(cache, []string{"a", "a", "b", "a"}, nil)

	if n := atomic.LoadInt64(&cache.lookups); n != 2 {
		t.Errorf("Expected 2 lookups for 2 distinct keys, got %d", n)
	}
}

func TestParallelCacheLookup_Concurrent(t *testing.T) {
	cache := newSlowCache(20 * time.Millisecond)

	keys := make([]string, 10)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	start := time.Now()
	ParallelCacheLookup(cache, keys, nil)
	elapsed := time.Since(start)

	// Sequential would take 200ms.
	if elapsed > 150*time.Millisecond {
		t.Errorf("lookups did not run concurrently: took %v", elapsed)
	}
}

func TestTranslateBulk_ParallelLookup(t *testing.T) {
	cache := newSlowCache(0)
	provider := newMockProvider()
	translator := NewTranslator(provider, WithCache(cache), WithParallelLookup(2))

	texts := []string{"one", "two", "three", "four", "five", "six"}
	cache.Set(CacheKey("three", LangES), "tres")

	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	if !results[2].Cached || results[2].Text != "tres" {
		t.Errorf("expected cached 'tres', got %+v", results[2])
	}
	if provider.callCount != 1 {
		t.Errorf("expected 1 bulk call, got %d", provider.callCount)
	}
	if len(provider.lastTexts) != 5 {
		t.Errorf("expected 5 uncached texts sent, got %d", len(provider.lastTexts))
	}
}
