package cache

import (
	"github.com/citevet/citevet/errors"
)

// Cache represents a bounded cache parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key. A hit moves the entry to the
	// most-recently-used position. An expired entry is removed and reported
	// as a miss. Returns the value and true if found, zero value and false
	// otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key, refreshing its insertion time.
	// If the key exists the entry is updated in place and re-bumped;
	// otherwise the least-recently-used entry is evicted when the cache is
	// at capacity. Returns true if a new entry was created, false if an
	// existing one was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// EvictExpired removes all expired entries and returns how many were
	// removed. It is a no-op for caches constructed without a TTL.
	EvictExpired() int

	// Size returns the current number of entries, including expired entries
	// that have not yet been swept.
	Size() int

	// Keys returns all unexpired keys, most recently used first.
	Keys() []string

	// Stats returns cache statistics, or nil for the no-op cache.
	Stats() *Statistics
}

// EvictCallback is called after an entry has been evicted from the cache.
// Callbacks run outside the cache's internal lock and may re-enter the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
