package cache

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry holds a cached value with its insertion time.
type cacheEntry struct {
	key       string
	value     string
	timestamp time.Time
}

// InMemoryCache is a process-local, thread-safe translation cache.
//
// With no options it is append-only: entries live until the process exits.
// WithMaxEntries bounds it, evicting the oldest insertions first, and WithTTL
// expires entries on read.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*list.Element
	order      *list.List // front = oldest insertion
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures an InMemoryCache.
type Option func(*InMemoryCache)

// WithTTL expires entries older than ttl. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *InMemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries caps the number of entries. Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *InMemoryCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache(opts ...Option) *InMemoryCache {
	c := &InMemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache.
// Returns the value and true if found and not expired, empty string and false otherwise.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	elem, ok := c.entries[key]
	var entry cacheEntry
	if ok {
		entry = *elem.Value.(*cacheEntry)
	}
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if c.expired(entry, c.now()) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current == elem {
			c.removeElement(elem)
		}
		c.mu.Unlock()
		return "", false
	}

	return entry.value, true
}

// Set stores a value in the cache.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.timestamp = c.now()
		c.order.MoveToBack(elem)
		return nil
	}

	elem := c.order.PushBack(&cacheEntry{key: key, value: value, timestamp: c.now()})
	c.entries[key] = elem

	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Front())
	}
	return nil
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Clear removes all entries from the cache.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Entries returns all non-expired entries as key-value pairs.
// This is used for cache export.
func (c *InMemoryCache) Entries() (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]string, c.order.Len())
	now := c.now()

	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*cacheEntry)
		if c.expired(*entry, now) {
			continue
		}
		result[entry.key] = entry.value
	}

	return result, nil
}

// Keys returns the keys of all non-expired entries, oldest first.
func (c *InMemoryCache) Keys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, c.order.Len())
	now := c.now()
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*cacheEntry)
		if !c.expired(*entry, now) {
			keys = append(keys, entry.key)
		}
	}
	return keys, nil
}

func (c *InMemoryCache) expired(entry cacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.timestamp) > c.ttl
}

// removeElement must be called with the write lock held.
func (c *InMemoryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

// Verify InMemoryCache implements ExportableCache
var _ ExportableCache = (*InMemoryCache)(nil)
