package storage

import (
	"fmt"
	"os"
	"strings"

	"modmap/internal/modmap"
)

// FileCheck is the per-file outcome of an integrity pass.
type FileCheck struct {
	Collection string   `json:"collection"`
	Readable   bool     `json:"readable"`
	Parseable  bool     `json:"parseable"`
	Valid      bool     `json:"valid"`
	Checksum   string   `json:"checksum,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// IntegrityResult aggregates an integrity pass over every known
// collection file.
type IntegrityResult struct {
	TotalFiles     int         `json:"total_files"`
	ValidFiles     int         `json:"valid_files"`
	CorruptedFiles int         `json:"corrupted_files"`
	ErrorCount     int         `json:"error_count"`
	WarningCount   int         `json:"warning_count"`
	Files          []FileCheck `json:"files"`
}

// CheckIntegrity confirms readability, parseability and structural
// validity of every collection file. Cross-module graph relationships
// are the checker's CheckReferences/DetectCycles job, not this one's.
// File digests go through the checksum cache so unchanged files are not
// re-hashed on repeated checks.
func (e *Engine) CheckIntegrity() (*IntegrityResult, error) {
	entries, err := os.ReadDir(e.collectionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &IntegrityResult{}, nil
		}
		return nil, modmap.WrapError(modmap.KindInit, err, "reading collections directory")
	}

	result := &IntegrityResult{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		collection := strings.TrimSuffix(entry.Name(), ".json")
		check := e.checkFile(collection)
		result.TotalFiles++
		if check.Valid {
			result.ValidFiles++
		} else {
			result.CorruptedFiles++
		}
		result.ErrorCount += len(check.Errors)
		result.WarningCount += len(check.Warnings)
		result.Files = append(result.Files, check)
	}

	e.record("integrity_check", "", result.CorruptedFiles == 0,
		fmt.Sprintf("%d files, %d corrupted", result.TotalFiles, result.CorruptedFiles))
	return result, nil
}

func (e *Engine) checkFile(collection string) FileCheck {
	check := FileCheck{Collection: collection}
	path := e.collectionPath(collection)

	if err := e.locker.TryAcquire(path, modmap.LockRead); err != nil {
		check.Errors = append(check.Errors, err.Error())
		return check
	}
	defer e.locker.Release(path, modmap.LockRead)

	info, err := os.Stat(path)
	if err != nil {
		check.Errors = append(check.Errors, fmt.Sprintf("stat: %v", err))
		return check
	}

	if sum, ok := e.cache.Lookup(path, info.ModTime()); ok {
		check.Checksum = sum
	}

	data, err := os.ReadFile(path)
	if err != nil {
		check.Errors = append(check.Errors, fmt.Sprintf("read: %v", err))
		return check
	}
	check.Readable = true

	if check.Checksum == "" {
		sum, _, err := hashFile(path)
		if err == nil {
			check.Checksum = sum
			e.cache.Store(path, info.ModTime(), sum)
		}
	}

	col, err := e.codec.Decode(data)
	if err != nil {
		check.Errors = append(check.Errors, err.Error())
		return check
	}
	check.Parseable = true

	report := e.checker.ValidateStructure(col.Modules)
	check.Errors = append(check.Errors, report.Errors...)
	check.Warnings = append(check.Warnings, report.Warnings...)
	if col.Metadata.TotalModules != len(col.Modules) {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("metadata total_modules=%d, actual %d", col.Metadata.TotalModules, len(col.Modules)))
	}
	check.Valid = len(check.Errors) == 0
	return check
}

// CollectionStats describes one collection file.
type CollectionStats struct {
	Modules   int   `json:"modules"`
	SizeBytes int64 `json:"size_bytes"`
	Backups   int   `json:"backups"`
}

// StorageStats aggregates module counts, file sizes and backup counts
// across the store.
type StorageStats struct {
	Collections  int                        `json:"collections"`
	TotalModules int                        `json:"total_modules"`
	TotalBytes   int64                      `json:"total_bytes"`
	TotalBackups int                        `json:"total_backups"`
	PerFile      map[string]CollectionStats `json:"per_file"`
}

// GetStats walks the store read-only and aggregates per-file
// distribution. Each file is read under its own read lease.
func (e *Engine) GetStats() (*StorageStats, error) {
	stats := &StorageStats{PerFile: make(map[string]CollectionStats)}

	entries, err := os.ReadDir(e.collectionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, modmap.WrapError(modmap.KindInit, err, "reading collections directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		collection := strings.TrimSuffix(entry.Name(), ".json")
		per := CollectionStats{}

		if info, err := entry.Info(); err == nil {
			per.SizeBytes = info.Size()
		}
		modules, err := e.Load(collection)
		if err == nil {
			per.Modules = len(modules)
		}
		if backups, err := e.rotator.List(collection); err == nil {
			per.Backups = len(backups)
		}

		stats.Collections++
		stats.TotalModules += per.Modules
		stats.TotalBytes += per.SizeBytes
		stats.TotalBackups += per.Backups
		stats.PerFile[collection] = per
	}

	return stats, nil
}
