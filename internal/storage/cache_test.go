package storage

import (
	"testing"
	"time"

	"modmap/internal/testutil"
)

func TestChecksumCache(t *testing.T) {
	const path = "/store/collections/modules.json"
	modTime := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("miss until stored", func(t *testing.T) {
		cache := newChecksumCache(testutil.FixedClock())
		if _, ok := cache.Lookup(path, modTime); ok {
			t.Fatal("Lookup() hit an empty cache")
		}
		cache.Store(path, modTime, "abc123")
		sum, ok := cache.Lookup(path, modTime)
		if !ok || sum != "abc123" {
			t.Errorf("Lookup() = %q, %t", sum, ok)
		}
	})

	t.Run("mtime change invalidates", func(t *testing.T) {
		cache := newChecksumCache(testutil.FixedClock())
		cache.Store(path, modTime, "abc123")
		if _, ok := cache.Lookup(path, modTime.Add(time.Second)); ok {
			t.Error("Lookup() hit after the file changed")
		}
		// the stale entry is gone, not just skipped
		if _, ok := cache.Lookup(path, modTime); ok {
			t.Error("stale entry survived")
		}
	})

	t.Run("entries expire", func(t *testing.T) {
		clock := testutil.FixedClock()
		cache := newChecksumCache(clock)
		cache.Store(path, modTime, "abc123")

		clock.Advance(checksumCacheTTL + time.Second)
		if _, ok := cache.Lookup(path, modTime); ok {
			t.Error("Lookup() hit past the TTL")
		}
	})

	t.Run("invalidate drops one path", func(t *testing.T) {
		cache := newChecksumCache(testutil.FixedClock())
		cache.Store(path, modTime, "abc123")
		cache.Store("/other.json", modTime, "def456")

		cache.Invalidate(path)
		if _, ok := cache.Lookup(path, modTime); ok {
			t.Error("invalidated entry still present")
		}
		if _, ok := cache.Lookup("/other.json", modTime); !ok {
			t.Error("unrelated entry lost")
		}
	})
}
