package modmap

import (
	"io"
	"time"

	"github.com/google/uuid"

	"modmap/internal/model"
)

// Logger provides structured logging for the core. The args follow slog
// conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// LockMode is the access mode requested for a lease.
type LockMode string

const (
	LockRead  LockMode = "read"
	LockWrite LockMode = "write"
)

// Locker is a per-resource advisory lease. It is cooperative and
// in-process only: it does not protect against external processes
// writing the same file. Acquisition never blocks; a busy lease is
// rejected immediately with ErrLocked and retry is the caller's job.
type Locker interface {
	// TryAcquire grants a lease on path in the given mode, or fails with
	// an ErrLocked-kinded error. Write leases are exclusive; read leases
	// coexist with other reads. Leases older than the configured TTL are
	// treated as abandoned and reclaimed.
	TryAcquire(path string, mode LockMode) error

	// Release removes the caller's lease on path unconditionally.
	Release(path string, mode LockMode)
}

// Storage is the persistence contract the module service depends on.
// Implemented by storage.Engine.
type Storage interface {
	// Initialize ensures storage directories exist. Idempotent.
	Initialize() error

	// Load reads one collection wholesale. A missing backing file is
	// first-run semantics: an empty map and no error.
	Load(collection string) (map[string]*model.Module, error)

	// Save validates, snapshots the prior file when auto-backup is on,
	// and atomically replaces the collection file.
	Save(collection string, modules map[string]*model.Module) error

	// Backup snapshots the current collection file into the backup
	// directory and prunes beyond the retention count.
	Backup(collection string) (*model.BackupInfo, error)
}

// Catalog is the persistent log of record for storage operations.
// The in-memory event ring is diagnostic only; the catalog survives
// process restarts.
type Catalog interface {
	// RecordOperation appends one operation entry and returns it with
	// its assigned ID.
	RecordOperation(op *OperationRecord) (*OperationRecord, error)

	// ListOperations returns the most recent entries, newest first.
	// limit <= 0 means no limit.
	ListOperations(limit int) ([]*OperationRecord, error)

	Close() error
}

// OperationRecord is one catalog entry.
type OperationRecord struct {
	ID         int64
	Operation  string
	Collection string
	Detail     string
	Checksum   string
	CreatedAt  time.Time
}

// Mirror is an off-site copy target for backup snapshots, keyed by
// content checksum. Put is idempotent: storing the same checksum twice
// is safe.
type Mirror interface {
	Put(checksum string, r io.Reader, size int64) error
	Get(checksum string, w io.Writer) error
	ValidateSetup() error
}

// Encryptor transforms snapshot streams before they leave the host.
type Encryptor interface {
	Encrypt(r io.Reader, w io.Writer) error
	Decrypt(r io.Reader, w io.Writer) error
}
