package cache

// Cache is the interface for caching authorization decisions.
// Keys carry the directory revision they were computed at, so an entry can
// never outlive the state it describes.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from cache.
	// Returns the value and true if found, or the zero value and false if not.
	Get(key K) (V, bool)

	// Set stores a value in cache
	Set(key K, value V)

	// Purge removes all entries
	Purge()

	// Len returns the number of live entries
	Len() int

	// Metrics returns cache statistics
	Metrics() Metrics
}

// Metrics holds cache performance statistics.
type Metrics struct {
	// Hits is the number of cache hits
	Hits uint64

	// Misses is the number of cache misses
	Misses uint64

	// KeysAdded is the number of keys added to cache
	KeysAdded uint64

	// KeysEvicted is the number of keys evicted to respect the size limit
	KeysEvicted uint64

	// Purges is the number of times the whole cache was dropped
	Purges uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
