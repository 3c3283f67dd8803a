package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full modmap configuration.
type Config struct {
	BaseDir    string `toml:"base_dir"`
	LogDir     string `toml:"log_dir"`
	Collection string `toml:"collection"` // default collection name

	Storage    StorageConfig    `toml:"storage"`
	Validation ValidationConfig `toml:"validation"`
	Lock       LockConfig       `toml:"lock"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Mirror     MirrorConfig     `toml:"mirror"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// StorageConfig controls the file-backed record engine.
type StorageConfig struct {
	RootDir    string `toml:"root_dir"`
	AutoBackup bool   `toml:"auto_backup"`
	MaxBackups int    `toml:"max_backups"`
}

// ValidationConfig controls strict-mode validation and naming bounds.
type ValidationConfig struct {
	Strict   bool `toml:"strict"`
	MaxDepth int  `toml:"max_depth"`
}

// LockConfig controls the advisory lease manager.
type LockConfig struct {
	// TTL is the lease expiry window as a duration string, e.g. "5m".
	TTL string `toml:"ttl"`
}

// ParseTTL returns the configured lease TTL, or 0 when unset so the
// lock manager falls back to its default.
func (l LockConfig) ParseTTL() (time.Duration, error) {
	if l.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid lock ttl %q: %w", l.TTL, err)
	}
	return d, nil
}

// CatalogConfig configures the durable operation log.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type string `toml:"type"`           // "sqlite", "memory", or "" (disabled)
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// MirrorConfig configures the off-site backup mirror.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MirrorConfig struct {
	Type string `toml:"type"` // "s3", "memory", or "" (disabled)

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for mirror
// encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age", "test", or "" (disabled)
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Collection: "modules",
		Storage: StorageConfig{
			RootDir:    filepath.Join(baseDir, "store"),
			AutoBackup: true,
			MaxBackups: 10,
		},
		Validation: ValidationConfig{
			Strict:   false,
			MaxDepth: 8,
		},
		Lock: LockConfig{TTL: "5m"},
		Catalog: CatalogConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "catalog.db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "modmap.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "modmap.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return err
	}
	return nil
}
