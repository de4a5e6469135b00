// Package cache provides a generic, thread-safe bounded cache with LRU
// eviction, optional TTL expiry, built-in statistics tracking, and optional
// Prometheus metrics integration.
//
// # Overview
//
// The cache holds at most maxSize entries. When an insert would exceed
// capacity, the least recently used entry is evicted first. If a TTL is
// configured, entries also expire a fixed duration after their last Set.
// A TTL of zero disables expiry entirely.
//
// The cache runs no background goroutines. Expired entries are removed
// lazily when a Get touches them, or in bulk when a caller invokes
// EvictExpired. This keeps the cache safe to embed in components that
// manage their own lifecycles: there is nothing to start and nothing to
// stop.
//
// # Quick Start
//
// Size-bounded cache:
//
//	cache, err := cache.New[*Result](1000, 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	cache.Set("key", result)
//	value, ok := cache.Get("key")
//
// Size plus TTL, with metrics and an eviction callback:
//
//	cache, err := cache.New[[]byte](5000, 10*time.Minute,
//		cache.WithMetrics[[]byte](registry, "detection_cache"),
//		cache.WithEvictionCallback[[]byte](func(key string, value []byte) {
//			log.Printf("evicted: %s", key)
//		}),
//	)
//
// From configuration (a disabled config yields a no-op cache that always
// misses):
//
//	cache, err := cache.NewFromConfig[*Result](cfg)
//
// # Observability Architecture
//
// The cache implements a dual-tracking pattern:
//
// Statistics (Always On):
//   - Tracks all operations using atomic counters
//   - Zero configuration required
//   - Available via cache.Stats()
//   - Provides computed metrics (hit ratio, requests/sec)
//   - No external dependencies
//
// Prometheus Metrics (Optional):
//   - Enabled via WithMetrics() option
//   - Exports to Prometheus for time-series monitoring
//   - Includes a component label for instance identification
//   - Standard metric types (Counter, Gauge)
//
// Statistics work without any Prometheus dependency, so they are always
// available for debugging and tests, and they provide derived values (hit
// ratio, requests per second) that raw counters do not. Metrics serve
// dashboards and alerting. Both are fed from the same operations; an
// expired entry discovered during Get counts as one eviction plus one
// miss in both systems.
//
// # Atomicity and Compound Operations
//
// Every exported operation is individually atomic: concurrent Gets, Sets,
// and Deletes never corrupt the cache, and the size bound holds under any
// interleaving. Compound sequences (get, decide, set) are intentionally
// NOT atomic at this level. Callers that need a coherent check-then-act,
// such as a registry consulting the cache before running an expensive
// detection, serialize those sequences under their own lock. Layering the
// coordination this way keeps the cache free of callback-under-lock and
// lock-ordering hazards.
//
// # Eviction Callbacks
//
// WithEvictionCallback registers a function invoked whenever an entry
// leaves the cache: capacity eviction, TTL expiry, Delete, or Clear.
// Callbacks always run after the cache's internal lock is released, so a
// callback may safely re-enter the cache. Callbacks run synchronously on
// the calling goroutine; keep them short.
//
// # Thread Safety
//
// All cache operations are thread-safe for concurrent use:
//   - Reads and writes are serialized with a mutex
//   - Statistics use atomic operations (lock-free)
//   - Metrics use Prometheus atomic types
//   - Eviction callbacks are called outside locks to prevent deadlocks
//
// # Performance Characteristics
//
//   - Get: O(1) map lookup + list move + expiry check
//   - Set: O(1) map insert + list push/evict
//   - Delete: O(1) map delete + list remove
//   - EvictExpired: O(n) scan, caller-triggered
//   - Memory: O(n) map + list + expiry tracking
//
// # Generic Type Support
//
// Caches are fully generic and work with any Go type:
//
//	stringCache, _ := cache.New[string](100, 0)
//	structCache, _ := cache.New[*DetectionResult](1000, 5*time.Minute)
//
// Keys are always strings; values can be any type V and are stored
// directly in memory without serialization.
package cache
