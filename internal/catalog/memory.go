package catalog

import (
	"sync"

	"modmap/internal/modmap"
)

// MemoryCatalog is an in-memory modmap.Catalog for tests and throwaway
// setups.
type MemoryCatalog struct {
	mu     sync.Mutex
	nextID int64
	ops    []*modmap.OperationRecord
}

var _ modmap.Catalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{nextID: 1}
}

func (c *MemoryCatalog) RecordOperation(op *modmap.OperationRecord) (*modmap.OperationRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recorded := *op
	recorded.ID = c.nextID
	c.nextID++
	c.ops = append(c.ops, &recorded)
	return &recorded, nil
}

func (c *MemoryCatalog) ListOperations(limit int) ([]*modmap.OperationRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.ops)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*modmap.OperationRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		copied := *c.ops[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (c *MemoryCatalog) Close() error { return nil }
