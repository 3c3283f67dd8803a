// Package mirror implements off-site copy targets for backup snapshots.
// Snapshots are keyed by content checksum, so uploads are idempotent and
// a target doubles as content-addressed storage.
package mirror

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"modmap/internal/modmap"
)

// MemoryMirror is an in-memory implementation of the Mirror interface,
// useful for testing. Safe for concurrent use.
type MemoryMirror struct {
	mu      sync.RWMutex
	content map[string][]byte // checksum -> snapshot bytes
}

var _ modmap.Mirror = (*MemoryMirror)(nil)

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{content: make(map[string][]byte)}
}

// Put stores a snapshot under its checksum. Idempotent.
func (m *MemoryMirror) Put(checksum string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[checksum] = data
	return nil
}

// Get writes the snapshot stored under checksum to w.
func (m *MemoryMirror) Get(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[checksum]
	if !ok {
		return fmt.Errorf("snapshot not found: %s", checksum)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for the in-memory target.
func (m *MemoryMirror) ValidateSetup() error { return nil }

// Len returns the number of stored snapshots. For tests.
func (m *MemoryMirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}
