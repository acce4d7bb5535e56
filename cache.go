package go24so

import (
	"container/list"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CacheEntry is a stored response body plus the metadata needed to replay
// it. An entry is usable only while now < StoredAt + TTL.
type CacheEntry struct {
	Body       []byte
	Header     http.Header
	StatusCode int
	StoredAt   time.Time
	ExpiresAt  time.Time
}

// expired reports whether the entry's TTL has elapsed.
func (e *CacheEntry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Cache is the interface for response caching. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	// InvalidatePrefix removes every entry whose key starts with prefix.
	InvalidatePrefix(prefix string)
	Clear()
	Len() int
}

// MemoryCache is an in-memory LRU cache bounded by entry count. Expired
// entries are treated as misses and lazily purged; inserting past capacity
// evicts the least-recently-used entry.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

type memoryCacheItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a cache holding at most maxEntries responses.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxSize
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the entry for key if present and unexpired, promoting it to
// most-recently-used.
func (c *MemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*memoryCacheItem)
	if item.entry.expired(time.Now()) {
		c.removeElement(elem)
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return item.entry, true
}

// Set stores an entry under key with the given TTL, overwriting any
// previous entry and evicting the LRU entry when over capacity.
func (c *MemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	now := time.Now()
	entry.StoredAt = now
	entry.ExpiresAt = now.Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*memoryCacheItem).entry = entry
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&memoryCacheItem{key: key, entry: entry})
	c.items[key] = elem

	for c.ll.Len() > c.maxEntries {
		if oldest := c.ll.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes the entry for key, if any.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *MemoryCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(elem)
		}
	}
}

// Clear removes all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// removeElement must be called with the lock held.
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.ll.Remove(elem)
	delete(c.items, elem.Value.(*memoryCacheItem).key)
}
