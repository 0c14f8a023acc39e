package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/asakaida/rolegate/internal/entities"
	"github.com/asakaida/rolegate/internal/services/authorization"
	"github.com/asakaida/rolegate/pkg/cache"
)

// Collector collects and aggregates engine metrics in process.
// It implements the mutation, save and decision observer interfaces and
// forwards every observation to an optional PrometheusExporter.
type Collector struct {
	// Store metrics
	mutations      sync.Map // map[string]*uint64 - operation -> count
	mutationErrors sync.Map // map[string]*uint64 - operation -> error count

	// Authorization metrics
	decisions sync.Map // map[authorization.Reason]*uint64 - reason -> count

	// Snapshot metrics
	saves       atomic.Uint64
	saveErrors  atomic.Uint64
	saveSeconds durationValue

	// Cache reference (optional, for querying cache-specific metrics)
	cache cacheStats

	exporter *PrometheusExporter
}

// cacheStats is the part of cache.Cache the collector reads
type cacheStats interface {
	Len() int
	Metrics() cache.Metrics
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	Evictions   uint64
	Purges      uint64
}

// StoreMetrics holds mutation counts per operation.
type StoreMetrics struct {
	MutationCounts map[string]uint64
	ErrorCounts    map[string]uint64
}

// SnapshotMetrics holds snapshot save statistics.
type SnapshotMetrics struct {
	Saves            uint64
	Failures         uint64
	TotalSaveSeconds float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the cache instance for collecting cache metrics.
func (c *Collector) SetCache(cache cacheStats) {
	c.cache = cache
}

// SetExporter forwards every observation to e as well.
func (c *Collector) SetExporter(e *PrometheusExporter) {
	c.exporter = e
}

// ObserveMutation records a store mutation attempt.
func (c *Collector) ObserveMutation(operation string, err error) {
	atomic.AddUint64(c.getOrCreateCounter(&c.mutations, operation), 1)
	if err != nil {
		atomic.AddUint64(c.getOrCreateCounter(&c.mutationErrors, operation), 1)
	}
	if c.exporter != nil {
		c.exporter.RecordMutation(operation, err)
	}
}

// ObserveSave records a snapshot save attempt.
func (c *Collector) ObserveSave(d time.Duration, err error) {
	c.saves.Add(1)
	if err != nil {
		c.saveErrors.Add(1)
	}
	c.saveSeconds.mu.Lock()
	c.saveSeconds.totalSeconds += d.Seconds()
	c.saveSeconds.mu.Unlock()

	if c.exporter != nil {
		c.exporter.RecordSave(d, err)
	}
}

// ObserveDecision records an authorization decision.
func (c *Collector) ObserveDecision(resource entities.Resource, d authorization.Decision) {
	atomic.AddUint64(c.getOrCreateCounter(&c.decisions, string(d.Reason)), 1)
	if c.exporter != nil {
		c.exporter.RecordDecision(resource, d)
	}
}

// GetCacheMetrics returns current cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.cache == nil {
		return &CacheMetrics{}
	}

	m := c.cache.Metrics()
	return &CacheMetrics{
		Hits:        m.Hits,
		Misses:      m.Misses,
		HitRate:     m.HitRate(),
		KeysCurrent: int64(c.cache.Len()),
		Evictions:   m.KeysEvicted,
		Purges:      m.Purges,
	}
}

// GetStoreMetrics returns current mutation counts.
func (c *Collector) GetStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		MutationCounts: loadCounters(&c.mutations),
		ErrorCounts:    loadCounters(&c.mutationErrors),
	}
}

// GetDecisionCounts returns decision counts keyed by reason.
func (c *Collector) GetDecisionCounts() map[authorization.Reason]uint64 {
	out := make(map[authorization.Reason]uint64)
	for reason, n := range loadCounters(&c.decisions) {
		out[authorization.Reason(reason)] = n
	}
	return out
}

// GetSnapshotMetrics returns snapshot save statistics.
func (c *Collector) GetSnapshotMetrics() *SnapshotMetrics {
	c.saveSeconds.mu.Lock()
	total := c.saveSeconds.totalSeconds
	c.saveSeconds.mu.Unlock()

	return &SnapshotMetrics{
		Saves:            c.saves.Load(),
		Failures:         c.saveErrors.Load(),
		TotalSaveSeconds: total,
	}
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}

func loadCounters(m *sync.Map) map[string]uint64 {
	out := make(map[string]uint64)
	m.Range(func(key, value any) bool {
		out[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return out
}
