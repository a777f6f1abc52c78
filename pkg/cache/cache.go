// Package cache provides the market metadata cache used by the exchange
// collaborator.
package cache

import "time"

// Cache is the interface for caching market metadata.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Wait blocks until pending writes are applied.
	Wait()

	// Close closes the cache and releases resources.
	Close()
}
