// Package lock implements the advisory per-resource lease used by the
// storage engine. It is cooperative and in-process only: a best-effort
// throttle, not a filesystem lock, and it does not protect against
// external processes touching the same files.
package lock

import (
	"sync"
	"time"

	"modmap/internal/modmap"
)

// DefaultTTL is the expiry window after which an unreleased lease is
// considered abandoned (crashed caller) and may be reclaimed.
const DefaultTTL = 5 * time.Minute

type lease struct {
	mode       modmap.LockMode
	acquiredAt time.Time
	readers    int // only meaningful for read leases
}

// Manager is an in-memory lease table keyed by resource path.
// Acquisition never blocks: a busy lease is rejected immediately and
// retry-with-backoff is the caller's responsibility.
type Manager struct {
	mu     sync.Mutex
	leases map[string]*lease
	ttl    time.Duration
	clock  modmap.Clock
}

// NewManager creates a Manager. ttl <= 0 falls back to DefaultTTL.
func NewManager(ttl time.Duration, clock modmap.Clock) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		leases: make(map[string]*lease),
		ttl:    ttl,
		clock:  clock,
	}
}

var _ modmap.Locker = (*Manager)(nil)

// TryAcquire grants a lease on path or fails with an ErrLocked-kinded
// error. Write leases are exclusive against everything; read leases
// coexist with other reads. A write request while any lease is held is
// rejected, so writers can starve under read-heavy load — a documented
// property of the advisory design, not a defect.
func (m *Manager) TryAcquire(path string, mode modmap.LockMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	existing, held := m.leases[path]
	if held && now.Sub(existing.acquiredAt) > m.ttl {
		// Stale lease from an abandoned caller: reclaim.
		delete(m.leases, path)
		held = false
	}

	if !held {
		l := &lease{mode: mode, acquiredAt: now}
		if mode == modmap.LockRead {
			l.readers = 1
		}
		m.leases[path] = l
		return nil
	}

	if existing.mode == modmap.LockWrite {
		return modmap.NewError(modmap.KindLocked,
			"resource %q is write-locked", path)
	}
	if mode == modmap.LockWrite {
		return modmap.NewError(modmap.KindLocked,
			"resource %q has active readers", path)
	}

	// read + read: share the lease and refresh its timestamp.
	existing.readers++
	existing.acquiredAt = now
	return nil
}

// Release removes the caller's lease on path. Read leases are counted;
// the table entry disappears when the last reader releases. Releasing a
// path that holds no lease is a no-op.
func (m *Manager) Release(path string, mode modmap.LockMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, held := m.leases[path]
	if !held {
		return
	}
	if mode == modmap.LockRead && existing.mode == modmap.LockRead && existing.readers > 1 {
		existing.readers--
		return
	}
	delete(m.leases, path)
}

// Held reports whether path currently carries an unexpired lease.
// Exposed for stats and tests.
func (m *Manager) Held(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, held := m.leases[path]
	if !held {
		return false
	}
	return m.clock.Now().Sub(existing.acquiredAt) <= m.ttl
}
