package memorycache

import (
	"container/list"
	"sync"
	"time"

	"github.com/asakaida/rolegate/pkg/cache"
)

// entry represents a cache entry with value and expiry
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiry
}

// Cache is a bounded LRU cache with optional TTL, safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	items     map[K]*list.Element
	evictList *list.List // front = most recent

	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	metrics cache.Metrics
}

var _ cache.Cache[string, int] = (*Cache[string, int])(nil)

// Config holds configuration for the memory cache.
type Config struct {
	// MaxEntries bounds the number of cached items. Least recently used items
	// are evicted beyond it. Zero or less means 1024.
	MaxEntries int

	// TTL is how long an entry stays valid. Zero keeps entries until evicted.
	TTL time.Duration
}

// New creates a new memory cache with the given configuration.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	return &Cache[K, V]{
		items:      make(map[K]*list.Element),
		evictList:  list.New(),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
}

// Get retrieves a value from cache.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.metrics.Misses++
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if !ent.expiresAt.IsZero() && c.now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.metrics.Misses++
		return zero, false
	}

	c.evictList.MoveToFront(elem)
	c.metrics.Hits++
	return ent.value, true
}

// Set stores a value in cache.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.evictList.MoveToFront(elem)
		return
	}

	c.items[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.metrics.KeysAdded++

	for c.evictList.Len() > c.maxEntries {
		c.removeElement(c.evictList.Back())
		c.metrics.KeysEvicted++
	}
}

// Purge removes all entries from cache.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.evictList.Init()
	c.metrics.Purges++
}

// Len returns the current number of items in cache, expired ones included
// until they are touched.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Metrics returns cache statistics.
func (c *Cache[K, V]) Metrics() cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// removeElement removes an element from cache (must be called with lock held).
func (c *Cache[K, V]) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
}
