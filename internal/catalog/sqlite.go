// Package catalog persists the durable log of record for storage
// operations. The engine's in-memory event ring is diagnostic and dies
// with the process; the catalog survives restarts.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"modmap/internal/catalog/migrations"
	"modmap/internal/modmap"
)

// SQLiteCatalog implements modmap.Catalog on a local SQLite database.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

var _ modmap.Catalog = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog opens (or creates) the catalog database at path and
// migrates it to the latest schema. path may be ":memory:".
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog schema: %w", err)
	}
	return &SQLiteCatalog{db: db, path: path}, nil
}

// RecordOperation appends one entry and returns it with its assigned ID.
func (c *SQLiteCatalog) RecordOperation(op *modmap.OperationRecord) (*modmap.OperationRecord, error) {
	res, err := c.db.Exec(
		`INSERT INTO operations (operation, collection, detail, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		op.Operation, op.Collection, op.Detail, op.Checksum, op.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	recorded := *op
	recorded.ID = id
	return &recorded, nil
}

// ListOperations returns the most recent entries, newest first.
// limit <= 0 means no limit.
func (c *SQLiteCatalog) ListOperations(limit int) ([]*modmap.OperationRecord, error) {
	query := `SELECT id, operation, collection, detail, checksum, created_at
	          FROM operations ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var ops []*modmap.OperationRecord
	for rows.Next() {
		op := &modmap.OperationRecord{}
		if err := rows.Scan(&op.ID, &op.Operation, &op.Collection, &op.Detail, &op.Checksum, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning operation row: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operation rows: %w", err)
	}
	return ops, nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}
