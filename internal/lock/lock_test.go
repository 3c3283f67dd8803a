package lock_test

import (
	"errors"
	"testing"
	"time"

	"modmap/internal/lock"
	"modmap/internal/modmap"
	"modmap/internal/testutil"
)

func TestManager_TryAcquire(t *testing.T) {
	const path = "/store/collections/modules.json"

	t.Run("write lease is exclusive", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		if err := m.TryAcquire(path, modmap.LockWrite); err != nil {
			t.Fatalf("TryAcquire(write) error = %v", err)
		}
		if err := m.TryAcquire(path, modmap.LockWrite); !errors.Is(err, modmap.ErrLocked) {
			t.Errorf("second write error = %v, want LOCK_UNAVAILABLE", err)
		}
		if err := m.TryAcquire(path, modmap.LockRead); !errors.Is(err, modmap.ErrLocked) {
			t.Errorf("read during write error = %v, want LOCK_UNAVAILABLE", err)
		}
	})

	t.Run("read leases coexist", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		if err := m.TryAcquire(path, modmap.LockRead); err != nil {
			t.Fatalf("first read error = %v", err)
		}
		if err := m.TryAcquire(path, modmap.LockRead); err != nil {
			t.Fatalf("second read error = %v", err)
		}
		if err := m.TryAcquire(path, modmap.LockWrite); !errors.Is(err, modmap.ErrLocked) {
			t.Errorf("write during reads error = %v, want LOCK_UNAVAILABLE", err)
		}
	})

	t.Run("distinct paths do not contend", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		if err := m.TryAcquire(path, modmap.LockWrite); err != nil {
			t.Fatalf("TryAcquire() error = %v", err)
		}
		if err := m.TryAcquire("/store/collections/other.json", modmap.LockWrite); err != nil {
			t.Errorf("unrelated path blocked: %v", err)
		}
	})

	t.Run("expired lease is reclaimed", func(t *testing.T) {
		clock := testutil.FixedClock()
		m := lock.NewManager(time.Minute, clock)
		if err := m.TryAcquire(path, modmap.LockWrite); err != nil {
			t.Fatalf("TryAcquire() error = %v", err)
		}

		clock.Advance(30 * time.Second)
		if err := m.TryAcquire(path, modmap.LockWrite); !errors.Is(err, modmap.ErrLocked) {
			t.Fatalf("fresh lease reclaimed too early: %v", err)
		}

		clock.Advance(45 * time.Second)
		if err := m.TryAcquire(path, modmap.LockWrite); err != nil {
			t.Errorf("stale lease not reclaimed: %v", err)
		}
	})
}

func TestManager_Release(t *testing.T) {
	const path = "/store/collections/modules.json"

	t.Run("counted readers release one at a time", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		m.TryAcquire(path, modmap.LockRead)
		m.TryAcquire(path, modmap.LockRead)

		m.Release(path, modmap.LockRead)
		if err := m.TryAcquire(path, modmap.LockWrite); !errors.Is(err, modmap.ErrLocked) {
			t.Fatalf("write acquired with a reader still active: %v", err)
		}

		m.Release(path, modmap.LockRead)
		if err := m.TryAcquire(path, modmap.LockWrite); err != nil {
			t.Errorf("write blocked after the last reader left: %v", err)
		}
	})

	t.Run("releasing an unheld path is a no-op", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		m.Release(path, modmap.LockWrite)
		if m.Held(path) {
			t.Error("Held() = true after releasing an unheld path")
		}
	})

	t.Run("write release frees the path", func(t *testing.T) {
		m := lock.NewManager(0, testutil.FixedClock())
		m.TryAcquire(path, modmap.LockWrite)
		m.Release(path, modmap.LockWrite)
		if m.Held(path) {
			t.Error("Held() = true after release")
		}
		if err := m.TryAcquire(path, modmap.LockRead); err != nil {
			t.Errorf("read blocked after write release: %v", err)
		}
	})
}
