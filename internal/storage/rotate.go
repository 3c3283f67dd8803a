package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modmap/internal/model"
	"modmap/internal/modmap"
)

// snapshotTimeLayout keys backup file names. ISO-8601 basic format with
// nanoseconds so two snapshots in the same second never collide.
const snapshotTimeLayout = "20060102T150405.000000000Z"

// Rotator snapshots a collection file before it is overwritten and
// prunes old snapshots beyond the retention count. Retention is by
// count, not age: the oldest files by mtime go first.
type Rotator struct {
	backupsDir string
	maxBackups int
	logger     modmap.Logger
	clock      modmap.Clock
	idgen      modmap.IDGenerator
}

// NewRotator creates a Rotator writing into backupsDir. maxBackups <= 0
// disables pruning.
func NewRotator(backupsDir string, maxBackups int, logger modmap.Logger, clock modmap.Clock, idgen modmap.IDGenerator) *Rotator {
	return &Rotator{
		backupsDir: backupsDir,
		maxBackups: maxBackups,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
	}
}

// Snapshot copies srcPath into the backup directory under a
// timestamp-keyed name and returns its metadata. The checksum is
// computed from the copied bytes, never from the live file, so a
// concurrent writer cannot skew it.
func (r *Rotator) Snapshot(collection, srcPath string) (*model.BackupInfo, error) {
	now := r.clock.Now().UTC()
	name := fmt.Sprintf("%s.json.%s", collection, now.Format(snapshotTimeLayout))
	destPath := filepath.Join(r.backupsDir, name)

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening collection file: %w", err)
	}
	defer src.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot file: %w", err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(destPath)
		return nil, fmt.Errorf("copying snapshot: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("closing snapshot file: %w", err)
	}

	checksum, size, err := hashFile(destPath)
	if err != nil {
		return nil, fmt.Errorf("hashing snapshot: %w", err)
	}

	return &model.BackupInfo{
		ID:         r.idgen.New(),
		Collection: collection,
		Path:       destPath,
		Size:       size,
		Checksum:   checksum,
		CreatedAt:  now,
	}, nil
}

// Prune deletes the oldest snapshots of collection beyond the retention
// count. Deletion failures are logged and skipped; pruning never fails
// the triggering save.
func (r *Rotator) Prune(collection string) {
	if r.maxBackups <= 0 {
		return
	}
	snapshots, err := r.List(collection)
	if err != nil {
		r.logger.Warn("listing snapshots for pruning failed", "collection", collection, "error", err)
		return
	}
	if len(snapshots) <= r.maxBackups {
		return
	}
	// List returns newest first; everything past the retention count goes.
	for _, s := range snapshots[r.maxBackups:] {
		if err := os.Remove(s.Path); err != nil {
			r.logger.Warn("pruning snapshot failed", "path", s.Path, "error", err)
			continue
		}
		r.logger.Debug("snapshot pruned", "path", s.Path)
	}
}

// List returns the snapshots for collection, newest first by mtime.
func (r *Rotator) List(collection string) ([]*model.BackupInfo, error) {
	entries, err := os.ReadDir(r.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	prefix := collection + ".json."
	var snapshots []*model.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, &model.BackupInfo{
			Collection: collection,
			Path:       filepath.Join(r.backupsDir, entry.Name()),
			Size:       info.Size(),
			CreatedAt:  info.ModTime().UTC(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
		}
		return snapshots[i].Path > snapshots[j].Path
	})
	return snapshots, nil
}

// hashFile returns the SHA-256 hex digest and size of the file at path.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
