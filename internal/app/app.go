package app

import (
	"fmt"
	"os"

	"modmap/internal/catalog"
	"modmap/internal/config"
	"modmap/internal/encryption"
	"modmap/internal/lock"
	"modmap/internal/mirror"
	"modmap/internal/model"
	"modmap/internal/modmap"
	"modmap/internal/storage"
)

// App is the application layer between the CLI and the core. It
// constructs all dependencies from config, exposes the operations the
// commands need, and manages resource lifecycles on Close.
type App struct {
	cfg     *config.Config
	engine  *storage.Engine
	service *modmap.ModuleService
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Add", "Backup"). The
// caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	ttl, err := cfg.Lock.ParseTTL()
	if err != nil {
		return nil, err
	}

	clock := modmap.RealClock{}
	idgen := modmap.UUIDGenerator{}
	resolver := modmap.NewResolver(cfg.Validation.MaxDepth)
	checker := modmap.NewChecker(resolver, cfg.Validation.Strict)
	locker := lock.NewManager(ttl, clock)

	cat, err := catalog.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	mir, err := mirror.NewMirrorFromConfig(cfg.Mirror)
	if err != nil {
		closeQuietly(cat)
		return nil, fmt.Errorf("creating mirror: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		closeQuietly(cat)
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := fmt.Sprintf("%s-%s", operation, clock.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		closeQuietly(cat)
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	engine := storage.NewEngine(storage.Config{
		Root:       cfg.Storage.RootDir,
		AutoBackup: cfg.Storage.AutoBackup,
		MaxBackups: cfg.Storage.MaxBackups,
	}, locker, checker, cat, mir, enc, adapter, clock, idgen)

	if err := engine.Initialize(); err != nil {
		logFile.Close()
		closeQuietly(cat)
		return nil, err
	}

	service := modmap.NewModuleService(engine, resolver, checker, adapter, clock, idgen,
		cfg.Collection, cfg.Validation.Strict)

	return &App{
		cfg:     cfg,
		engine:  engine,
		service: service,
		logFile: logFile,
	}, nil
}

func closeQuietly(cat modmap.Catalog) {
	if cat != nil {
		cat.Close()
	}
}

// Close releases the engine (watcher, catalog) and the log file.
func (a *App) Close() error {
	err := a.engine.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// Service returns the module façade.
func (a *App) Service() *modmap.ModuleService { return a.service }

// Add creates a module.
func (a *App) Add(in modmap.AddModuleInput) (*model.Module, error) {
	return a.service.Add(in)
}

// Update patches a module.
func (a *App) Update(hname string, patch modmap.ModulePatch) (*model.Module, error) {
	return a.service.Update(hname, patch)
}

// Delete removes a module.
func (a *App) Delete(hname string) error {
	return a.service.Delete(hname)
}

// Get returns one module.
func (a *App) Get(hname string) (*model.Module, error) {
	return a.service.Get(hname)
}

// Search pages through matching modules.
func (a *App) Search(criteria modmap.SearchCriteria) (*modmap.SearchResult, error) {
	return a.service.Search(criteria)
}

// GetTypeStructure returns hierarchy and relationship info for a module.
func (a *App) GetTypeStructure(hname string) (*modmap.TypeStructure, error) {
	return a.service.GetTypeStructure(hname)
}

// Backup snapshots the configured collection.
func (a *App) Backup() (*model.BackupInfo, error) {
	return a.engine.Backup(a.cfg.Collection)
}

// ListBackups lists retained snapshots, newest first.
func (a *App) ListBackups() ([]*model.BackupInfo, error) {
	return a.engine.ListBackups(a.cfg.Collection)
}

// RestoreBackup replaces the live collection with the named snapshot.
func (a *App) RestoreBackup(snapshotName string) error {
	return a.engine.RestoreBackup(a.cfg.Collection, snapshotName)
}

// CheckIntegrity runs the file-level pass over every collection.
func (a *App) CheckIntegrity() (*storage.IntegrityResult, error) {
	return a.engine.CheckIntegrity()
}

// CheckGraph runs the reference and cycle passes over the collection.
func (a *App) CheckGraph() (*modmap.Report, []modmap.Cycle, error) {
	return a.service.CheckGraph()
}

// Repair runs two-phase auto-repair on the collection.
func (a *App) Repair() ([]modmap.Issue, *modmap.RepairReport, error) {
	return a.service.Repair()
}

// GetStats aggregates storage statistics.
func (a *App) GetStats() (*storage.StorageStats, error) {
	return a.engine.GetStats()
}

// Events returns recent diagnostic events, newest first.
func (a *App) Events(limit int) []modmap.Event {
	return a.engine.Events(limit)
}

// History returns the durable operation log, newest first.
func (a *App) History(limit int) ([]*modmap.OperationRecord, error) {
	return a.engine.History(limit)
}
