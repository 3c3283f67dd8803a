package storage

import (
	"sync"
	"time"

	"modmap/internal/modmap"
)

// checksumCacheTTL bounds how long a cached file digest is trusted.
const checksumCacheTTL = 5 * time.Minute

type cacheEntry struct {
	checksum   string
	modTime    time.Time
	computedAt time.Time
}

// checksumCache remembers per-file content digests so repeated integrity
// checks do not re-hash unchanged files. An entry is trusted only while
// its TTL is fresh and the file's mtime is unchanged; the fsnotify
// watcher additionally invalidates entries the moment a file is touched.
// A field on the engine, never a package global.
type checksumCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	clock   modmap.Clock
}

func newChecksumCache(clock modmap.Clock) *checksumCache {
	return &checksumCache{
		entries: make(map[string]cacheEntry),
		clock:   clock,
	}
}

// Lookup returns the cached digest for path if still trustworthy.
func (c *checksumCache) Lookup(path string, modTime time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	if !ok {
		return "", false
	}
	if c.clock.Now().Sub(entry.computedAt) > checksumCacheTTL {
		delete(c.entries, path)
		return "", false
	}
	if !entry.modTime.Equal(modTime) {
		delete(c.entries, path)
		return "", false
	}
	return entry.checksum, true
}

// Store records a freshly computed digest.
func (c *checksumCache) Store(path string, modTime time.Time, checksum string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{
		checksum:   checksum,
		modTime:    modTime,
		computedAt: c.clock.Now(),
	}
}

// Invalidate drops the entry for path, if any.
func (c *checksumCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}
