package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/citevet/citevet/errors"
)

// boundedEntry represents an entry in the bounded cache.
type boundedEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiration
}

// isExpired reports whether the entry has expired at the given time.
func (e *boundedEntry[V]) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// boundedCache is an LRU cache with an optional per-entry TTL. Entries are
// evicted when the cache is at maximum size (least recently used first) or,
// if a TTL is configured, lazily once they expire.
//
// Each exported operation is atomic under the internal mutex. Compound
// check-then-act sequences (get, decide, set) are NOT atomic at this level;
// callers that need them serialize through their own lock. The strategy
// registry does exactly that with its structural lock during detection.
type boundedCache[V any] struct {
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration // zero disables expiry
	items   map[string]*list.Element
	order   *list.List    // most recently used at front
	stats   *Statistics   // ALWAYS initialized
	metrics *cacheMetrics // optional
	evictFn EvictCallback[V]
}

// New creates a bounded cache holding at most maxSize entries. A ttl of zero
// disables expiry. Stats are always enabled for observability; use
// WithMetrics() to also export them as Prometheus metrics.
func New[V any](maxSize int, ttl time.Duration, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New",
			fmt.Sprintf("max size must be positive, got %d", maxSize))
	}
	if ttl < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New",
			fmt.Sprintf("ttl must not be negative, got %v", ttl))
	}

	opts := applyOptions(options...)

	var metrics *cacheMetrics
	// Optionally expose stats as Prometheus metrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
	}

	return &boundedCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key, checking expiry and updating LRU order.
// An expired entry is removed and counted as an eviction plus a miss.
func (c *boundedCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		c.mu.Unlock()
		return zero, false
	}

	entry := element.Value.(*boundedEntry[V])
	if entry.isExpired(time.Now()) {
		c.unlink(element)
		c.stats.Eviction()
		c.stats.Miss()
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.recordMiss()
			c.metrics.updateSize(len(c.items))
		}
		c.mu.Unlock()
		c.notify(entry)
		return zero, false
	}

	// Move to front (most recently used)
	c.order.MoveToFront(element)
	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	value := entry.value
	c.mu.Unlock()
	return value, true
}

// Set stores a value with the given key, refreshing its insertion time and
// LRU position. When the cache is at capacity, exactly one least-recently-used
// entry is evicted before the insert.
func (c *boundedCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		// Update existing entry in place
		entry := element.Value.(*boundedEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(element)

		c.stats.Set()
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		c.mu.Unlock()
		return false, nil
	}

	var evicted *boundedEntry[V]
	if len(c.items) >= c.maxSize {
		if back := c.order.Back(); back != nil {
			evicted = c.unlink(back)
			c.stats.Eviction()
			if c.metrics != nil {
				c.metrics.recordEviction()
			}
		}
	}

	entry := &boundedEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.items[key] = c.order.PushFront(entry)

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(len(c.items))
	}
	c.mu.Unlock()

	if evicted != nil {
		c.notify(evicted)
	}
	return true, nil
}

// Delete removes an entry by key.
func (c *boundedCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	entry := c.unlink(element)
	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(len(c.items))
	}
	c.mu.Unlock()

	c.notify(entry)
	return true, nil
}

// Clear removes all entries from the cache.
func (c *boundedCache[V]) Clear() error {
	c.mu.Lock()
	var removed []*boundedEntry[V]
	if c.evictFn != nil {
		removed = make([]*boundedEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			removed = append(removed, element.Value.(*boundedEntry[V]))
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	c.mu.Unlock()

	c.notify(removed...)
	return nil
}

// EvictExpired removes all expired entries and returns how many were removed.
func (c *boundedCache[V]) EvictExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	now := time.Now()
	var removed []*boundedEntry[V]

	c.mu.Lock()
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		entry := element.Value.(*boundedEntry[V])
		if entry.isExpired(now) {
			removed = append(removed, c.unlink(element))
		}
		element = next
	}

	if len(removed) > 0 {
		for range removed {
			c.stats.Eviction()
		}
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			for range removed {
				c.metrics.recordEviction()
			}
			c.metrics.updateSize(len(c.items))
		}
	}
	c.mu.Unlock()

	c.notify(removed...)
	return len(removed)
}

// Size returns the current number of entries, including expired entries that
// have not yet been swept.
func (c *boundedCache[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns unexpired keys in LRU order (most recently used first).
// Expired entries that have not yet been swept are skipped.
func (c *boundedCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	now := time.Now()
	for element := c.order.Front(); element != nil; element = element.Next() {
		entry := element.Value.(*boundedEntry[V])
		if !entry.isExpired(now) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *boundedCache[V]) Stats() *Statistics {
	return c.stats
}

// unlink removes an element from the map and order list. Must be called with
// the mutex held; invoking the eviction callback is the caller's
// responsibility, after the mutex is released.
func (c *boundedCache[V]) unlink(element *list.Element) *boundedEntry[V] {
	entry := element.Value.(*boundedEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}

// notify invokes the eviction callback. Must be called without the mutex held;
// callbacks may re-enter the cache.
func (c *boundedCache[V]) notify(entries ...*boundedEntry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, entry := range entries {
		c.evictFn(entry.key, entry.value)
	}
}
