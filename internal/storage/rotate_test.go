package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"modmap/internal/modmap"
	"modmap/internal/storage"
	"modmap/internal/testutil"
)

func newTestRotator(t *testing.T, maxBackups int) (*storage.Rotator, *testutil.StubClock, string, string) {
	t.Helper()
	root := t.TempDir()
	backupsDir := filepath.Join(root, "backups")
	if err := os.MkdirAll(backupsDir, 0755); err != nil {
		t.Fatalf("creating backups dir: %v", err)
	}
	clock := testutil.FixedClock()
	r := storage.NewRotator(backupsDir, maxBackups, modmap.NewNopLogger(), clock, testutil.NewStubIDGenerator())
	return r, clock, root, backupsDir
}

func writeCollectionFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "modules.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing collection file: %v", err)
	}
	return path
}

func TestRotator_Snapshot(t *testing.T) {
	t.Run("copies content and checksums the copy", func(t *testing.T) {
		r, _, root, _ := newTestRotator(t, 0)
		content := `{"metadata": {"version": "1.0"}, "modules": {}}`
		src := writeCollectionFile(t, root, content)

		info, err := r.Snapshot("modules", src)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}

		copied, err := os.ReadFile(info.Path)
		if err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}
		if string(copied) != content {
			t.Error("snapshot content differs from the source")
		}
		if info.Checksum != testutil.SHA256Hex([]byte(content)) {
			t.Errorf("Checksum = %s, want the content digest", info.Checksum)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", info.Size, len(content))
		}
		if info.Collection != "modules" || info.ID == "" {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("missing source fails", func(t *testing.T) {
		r, _, root, _ := newTestRotator(t, 0)
		if _, err := r.Snapshot("modules", filepath.Join(root, "nope.json")); err == nil {
			t.Error("Snapshot() of a missing file succeeded")
		}
	})
}

func TestRotator_Prune(t *testing.T) {
	t.Run("keeps only the newest snapshots", func(t *testing.T) {
		r, clock, root, _ := newTestRotator(t, 3)
		src := writeCollectionFile(t, root, "{}")

		var created []string
		for i := 0; i < 5; i++ {
			info, err := r.Snapshot("modules", src)
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			created = append(created, info.Path)
			clock.Advance(time.Second)
		}

		r.Prune("modules")

		remaining, err := r.List("modules")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(remaining) != 3 {
			t.Fatalf("List() = %d snapshots after prune, want 3", len(remaining))
		}
		// the two oldest are gone, the newest survives
		if _, err := os.Stat(created[0]); !os.IsNotExist(err) {
			t.Error("oldest snapshot still present")
		}
		if _, err := os.Stat(created[4]); err != nil {
			t.Errorf("newest snapshot missing: %v", err)
		}
	})

	t.Run("zero retention disables pruning", func(t *testing.T) {
		r, clock, root, _ := newTestRotator(t, 0)
		src := writeCollectionFile(t, root, "{}")
		for i := 0; i < 4; i++ {
			if _, err := r.Snapshot("modules", src); err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			clock.Advance(time.Second)
		}
		r.Prune("modules")
		remaining, _ := r.List("modules")
		if len(remaining) != 4 {
			t.Errorf("List() = %d snapshots, want all 4 kept", len(remaining))
		}
	})
}

func TestRotator_List(t *testing.T) {
	t.Run("newest first, other collections excluded", func(t *testing.T) {
		r, clock, root, _ := newTestRotator(t, 0)
		src := writeCollectionFile(t, root, "{}")

		first, err := r.Snapshot("modules", src)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		clock.Advance(time.Second)
		second, err := r.Snapshot("modules", src)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		clock.Advance(time.Second)
		if _, err := r.Snapshot("other", src); err != nil {
			t.Fatalf("Snapshot(other) error = %v", err)
		}

		snapshots, err := r.List("modules")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(snapshots) != 2 {
			t.Fatalf("List() = %d snapshots, want 2", len(snapshots))
		}
		if snapshots[0].Path != second.Path || snapshots[1].Path != first.Path {
			t.Errorf("order = [%s, %s]", snapshots[0].Path, snapshots[1].Path)
		}
	})

	t.Run("missing backup directory is empty, not an error", func(t *testing.T) {
		clock := testutil.FixedClock()
		r := storage.NewRotator(filepath.Join(t.TempDir(), "absent"), 0,
			modmap.NewNopLogger(), clock, testutil.NewStubIDGenerator())
		snapshots, err := r.List("modules")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(snapshots) != 0 {
			t.Errorf("List() = %v, want none", snapshots)
		}
	})
}
