// Package cache remembers content digests across runs so unchanged files
// are not re-read.
package cache

import "time"

// Key identifies one digest. A file whose size or modification time has
// changed no longer matches its old entry.
type Key struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Algorithm string
}

// Cache defines the interface for digest caches.
type Cache interface {
	// Get returns the digest stored for key, if any.
	Get(key Key) (string, bool)

	// Set stores the digest for key, replacing any older entry for the
	// same path and algorithm.
	Set(key Key, digest string) error

	// Clear removes all entries from the cache.
	Clear() error

	// Close closes the cache and releases resources.
	Close() error
}
