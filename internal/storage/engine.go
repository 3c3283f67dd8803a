package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modmap/internal/model"
	"modmap/internal/modmap"
)

// Config holds the engine's tunable behavior.
type Config struct {
	// Root is the storage base directory. Collections live under
	// Root/collections, snapshots under Root/backups.
	Root string

	// AutoBackup snapshots the prior file before every save.
	AutoBackup bool

	// MaxBackups is the per-collection retention count. <= 0 disables
	// pruning.
	MaxBackups int
}

// Engine orchestrates read, write, backup, restore and checksum
// operations for collection files. Every failure comes back as a typed
// result; nothing is thrown past this boundary. The event log and
// checksum cache are fields constructed once here and shared by
// reference, never globals.
type Engine struct {
	cfg            Config
	collectionsDir string
	backupsDir     string

	codec     Codec
	locker    modmap.Locker
	checker   *modmap.Checker
	rotator   *Rotator
	catalog   modmap.Catalog   // optional durable operation log
	mirror    modmap.Mirror    // optional off-site snapshot copy
	encryptor modmap.Encryptor // optional, applied to mirror uploads only

	events *modmap.EventLog
	cache  *checksumCache
	watch  *watcher

	logger modmap.Logger
	clock  modmap.Clock
	idgen  modmap.IDGenerator
}

var _ modmap.Storage = (*Engine)(nil)

// NewEngine wires an Engine from its dependencies. catalog, mirror and
// encryptor may be nil; the engine then skips those concerns.
func NewEngine(cfg Config, locker modmap.Locker, checker *modmap.Checker, catalog modmap.Catalog, mirror modmap.Mirror, encryptor modmap.Encryptor, logger modmap.Logger, clock modmap.Clock, idgen modmap.IDGenerator) *Engine {
	collectionsDir := filepath.Join(cfg.Root, "collections")
	backupsDir := filepath.Join(cfg.Root, "backups")
	return &Engine{
		cfg:            cfg,
		collectionsDir: collectionsDir,
		backupsDir:     backupsDir,
		locker:         locker,
		checker:        checker,
		rotator:        NewRotator(backupsDir, cfg.MaxBackups, logger, clock, idgen),
		catalog:        catalog,
		mirror:         mirror,
		encryptor:      encryptor,
		events:         modmap.NewEventLog(),
		cache:          newChecksumCache(clock),
		logger:         logger,
		clock:          clock,
		idgen:          idgen,
	}
}

// Initialize ensures the storage directories exist. Idempotent.
func (e *Engine) Initialize() error {
	for _, dir := range []string{e.cfg.Root, e.collectionsDir, e.backupsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return modmap.WrapError(modmap.KindInit, err, "creating storage directory %s", dir)
		}
	}
	return nil
}

// StartWatcher begins fsnotify-based checksum-cache invalidation on the
// collections directory. Optional; call Close to stop it.
func (e *Engine) StartWatcher() error {
	if e.watch != nil {
		return nil
	}
	w, err := newWatcher(e.collectionsDir, e.cache, e.logger)
	if err != nil {
		return modmap.WrapError(modmap.KindInit, err, "starting storage watcher")
	}
	e.watch = w
	return nil
}

// Close releases engine resources: the watcher and the catalog.
func (e *Engine) Close() error {
	if e.watch != nil {
		if err := e.watch.Close(); err != nil {
			return err
		}
		e.watch = nil
	}
	if e.catalog != nil {
		return e.catalog.Close()
	}
	return nil
}

// Load reads one collection wholesale. A missing file is first-run
// semantics: an empty map and no error.
func (e *Engine) Load(collection string) (map[string]*model.Module, error) {
	if err := validCollectionName(collection); err != nil {
		return nil, err
	}
	path := e.collectionPath(collection)
	if err := e.locker.TryAcquire(path, modmap.LockRead); err != nil {
		e.record("load", collection, false, err.Error())
		return nil, err
	}
	defer e.locker.Release(path, modmap.LockRead)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			e.record("load", collection, true, "first run, no backing file")
			return make(map[string]*model.Module), nil
		}
		e.record("load", collection, false, err.Error())
		return nil, modmap.WrapError(modmap.KindWrite, err, "reading collection %s", collection)
	}

	col, err := e.codec.Decode(data)
	if err != nil {
		e.record("load", collection, false, err.Error())
		return nil, err
	}
	e.record("load", collection, true, fmt.Sprintf("%d modules", len(col.Modules)))
	return col.Modules, nil
}

// Save validates the map's structural rules, snapshots the prior file
// when auto-backup is on, recomputes metadata, and atomically replaces
// the collection file. The file on disk is always either the old
// content or the fully written new content, never partial.
func (e *Engine) Save(collection string, modules map[string]*model.Module) error {
	if err := validCollectionName(collection); err != nil {
		return err
	}
	if report := e.checker.ValidateStructure(modules); !report.OK() {
		err := modmap.NewError(modmap.KindValidation,
			"collection %s failed structural validation: %s", collection, strings.Join(report.Errors, "; "))
		e.record("save", collection, false, err.Error())
		return err
	}

	path := e.collectionPath(collection)
	if err := e.locker.TryAcquire(path, modmap.LockWrite); err != nil {
		e.record("save", collection, false, err.Error())
		return err
	}
	defer e.locker.Release(path, modmap.LockWrite)

	// Snapshot the prior content first. A failed snapshot aborts the
	// save: overwriting without the safety copy would be silent data
	// risk. Pruning and mirroring failures never abort.
	if e.cfg.AutoBackup {
		if _, err := os.Stat(path); err == nil {
			if _, err := e.snapshotLocked(collection, path); err != nil {
				e.record("save", collection, false, err.Error())
				return modmap.WrapError(modmap.KindWrite, err, "pre-save snapshot of %s", collection)
			}
		}
	}

	col := &model.Collection{
		Metadata: e.nextMetadata(path, len(modules)),
		Modules:  modules,
	}
	data, err := e.codec.Encode(col)
	if err != nil {
		e.record("save", collection, false, err.Error())
		return err
	}

	if err := atomicWrite(path, data); err != nil {
		e.record("save", collection, false, err.Error())
		return modmap.WrapError(modmap.KindWrite, err, "writing collection %s", collection)
	}

	if info, err := os.Stat(path); err == nil {
		sum, _, hashErr := hashFile(path)
		if hashErr == nil {
			e.cache.Store(path, info.ModTime(), sum)
		}
	}

	e.logCatalog("save", collection, fmt.Sprintf("%d modules", len(modules)), modmap.CollectionChecksum(modules))
	e.record("save", collection, true, fmt.Sprintf("%d modules", len(modules)))
	return nil
}

// Backup snapshots the current collection file on demand, prunes old
// snapshots, and pushes the copy to the mirror when one is configured.
func (e *Engine) Backup(collection string) (*model.BackupInfo, error) {
	if err := validCollectionName(collection); err != nil {
		return nil, err
	}
	path := e.collectionPath(collection)
	if err := e.locker.TryAcquire(path, modmap.LockRead); err != nil {
		e.record("backup", collection, false, err.Error())
		return nil, err
	}
	defer e.locker.Release(path, modmap.LockRead)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			err := modmap.NewError(modmap.KindNotFound, "collection %q has no backing file", collection)
			e.record("backup", collection, false, err.Error())
			return nil, err
		}
		e.record("backup", collection, false, err.Error())
		return nil, modmap.WrapError(modmap.KindWrite, err, "inspecting collection %s", collection)
	}

	info, err := e.snapshotLocked(collection, path)
	if err != nil {
		e.record("backup", collection, false, err.Error())
		return nil, modmap.WrapError(modmap.KindWrite, err, "snapshotting collection %s", collection)
	}

	e.logCatalog("backup", collection, filepath.Base(info.Path), info.Checksum)
	e.record("backup", collection, true, filepath.Base(info.Path))
	return info, nil
}

// snapshotLocked copies the live file into the backup directory, prunes,
// and mirrors. The relevant lease must already be held.
func (e *Engine) snapshotLocked(collection, path string) (*model.BackupInfo, error) {
	info, err := e.rotator.Snapshot(collection, path)
	if err != nil {
		return nil, err
	}
	e.rotator.Prune(collection)
	e.mirrorSnapshot(info)
	return info, nil
}

// mirrorSnapshot pushes a snapshot off-site, encrypting in transit when
// an encryptor is configured. Mirror failures are logged, never fatal:
// the local snapshot already exists.
func (e *Engine) mirrorSnapshot(info *model.BackupInfo) {
	if e.mirror == nil {
		return
	}
	f, err := os.Open(info.Path)
	if err != nil {
		e.logger.Warn("mirror upload skipped", "path", info.Path, "error", err)
		return
	}
	defer f.Close()

	if e.encryptor != nil {
		var buf bytes.Buffer
		if err := e.encryptor.Encrypt(f, &buf); err != nil {
			e.logger.Warn("mirror encryption failed", "path", info.Path, "error", err)
			return
		}
		if err := e.mirror.Put(info.Checksum, &buf, int64(buf.Len())); err != nil {
			e.logger.Warn("mirror upload failed", "path", info.Path, "error", err)
			return
		}
	} else {
		if err := e.mirror.Put(info.Checksum, f, info.Size); err != nil {
			e.logger.Warn("mirror upload failed", "path", info.Path, "error", err)
			return
		}
	}
	e.logger.Debug("snapshot mirrored", "checksum", info.Checksum)
}

// ListBackups returns the retained snapshots for collection, newest
// first.
func (e *Engine) ListBackups(collection string) ([]*model.BackupInfo, error) {
	if err := validCollectionName(collection); err != nil {
		return nil, err
	}
	return e.rotator.List(collection)
}

// RestoreBackup atomically replaces the live collection file with the
// named snapshot. The snapshot must decode cleanly first, and the
// current file (if any) is snapshotted before being replaced, so a
// restore never destroys state it cannot bring back.
func (e *Engine) RestoreBackup(collection, snapshotName string) error {
	if err := validCollectionName(collection); err != nil {
		return err
	}
	if snapshotName != filepath.Base(snapshotName) || !strings.HasPrefix(snapshotName, collection+".json.") {
		return modmap.NewError(modmap.KindValidation, "invalid snapshot name %q", snapshotName)
	}
	snapshotPath := filepath.Join(e.backupsDir, snapshotName)

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return modmap.NewError(modmap.KindNotFound, "snapshot %q not found", snapshotName)
		}
		return modmap.WrapError(modmap.KindWrite, err, "reading snapshot %s", snapshotName)
	}
	if _, err := e.codec.Decode(data); err != nil {
		return modmap.WrapError(modmap.KindValidation, err, "snapshot %s is not restorable", snapshotName)
	}

	path := e.collectionPath(collection)
	if err := e.locker.TryAcquire(path, modmap.LockWrite); err != nil {
		e.record("restore", collection, false, err.Error())
		return err
	}
	defer e.locker.Release(path, modmap.LockWrite)

	if _, err := os.Stat(path); err == nil {
		if _, err := e.snapshotLocked(collection, path); err != nil {
			e.record("restore", collection, false, err.Error())
			return modmap.WrapError(modmap.KindWrite, err, "pre-restore snapshot of %s", collection)
		}
	}

	if err := atomicWrite(path, data); err != nil {
		e.record("restore", collection, false, err.Error())
		return modmap.WrapError(modmap.KindWrite, err, "restoring collection %s", collection)
	}
	e.cache.Invalidate(path)

	e.logCatalog("restore", collection, snapshotName, "")
	e.record("restore", collection, true, snapshotName)
	return nil
}

// Events returns the most recent diagnostic events, newest first.
func (e *Engine) Events(limit int) []modmap.Event {
	return e.events.Recent(limit)
}

// History returns the durable operation log, newest first. Empty when no
// catalog is configured.
func (e *Engine) History(limit int) ([]*modmap.OperationRecord, error) {
	if e.catalog == nil {
		return nil, nil
	}
	return e.catalog.ListOperations(limit)
}

// record appends a diagnostic event and logs it.
func (e *Engine) record(operation, collection string, success bool, detail string) {
	e.events.Record(modmap.Event{
		Time:       e.clock.Now().UTC(),
		Operation:  operation,
		Collection: collection,
		Success:    success,
		Detail:     detail,
	})
	if success {
		e.logger.Debug("storage operation", "op", operation, "collection", collection, "detail", detail)
	} else {
		e.logger.Error("storage operation failed", "op", operation, "collection", collection, "detail", detail)
	}
}

// logCatalog appends to the durable operation log. Catalog failures are
// logged and swallowed: the catalog is observability, losing an entry
// must not fail the storage operation it describes.
func (e *Engine) logCatalog(operation, collection, detail, checksum string) {
	if e.catalog == nil {
		return
	}
	_, err := e.catalog.RecordOperation(&modmap.OperationRecord{
		Operation:  operation,
		Collection: collection,
		Detail:     detail,
		Checksum:   checksum,
		CreatedAt:  e.clock.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("catalog record failed", "op", operation, "collection", collection, "error", err)
	}
}

// nextMetadata recomputes collection metadata for a save, preserving the
// original creation time when the file already exists and parses.
func (e *Engine) nextMetadata(path string, total int) model.CollectionMetadata {
	now := e.clock.Now().UTC()
	meta := model.CollectionMetadata{
		Version:      model.SchemaVersion,
		CreatedAt:    now,
		UpdatedAt:    now,
		TotalModules: total,
	}
	if data, err := os.ReadFile(path); err == nil {
		if col, err := e.codec.Decode(data); err == nil && !col.Metadata.CreatedAt.IsZero() {
			meta.CreatedAt = col.Metadata.CreatedAt
		}
	}
	return meta
}

func (e *Engine) collectionPath(collection string) string {
	return filepath.Join(e.collectionsDir, collection+".json")
}

// validCollectionName rejects names that would escape the collections
// directory or collide with the snapshot naming scheme.
func validCollectionName(name string) error {
	if name == "" {
		return modmap.NewError(modmap.KindValidation, "collection name is empty")
	}
	for _, c := range name {
		switch {
		case c == '_' || c == '-':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return modmap.NewError(modmap.KindValidation, "invalid collection name %q", name)
		}
	}
	return nil
}

// atomicWrite writes data to a temp file in path's directory, syncs it,
// and renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}
