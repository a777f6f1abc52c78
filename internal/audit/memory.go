package audit

import (
	"context"

	"github.com/aaronwins356/voltrader/pkg/types"
)

// MemoryStorage keeps records in process memory only. Used for tests
// and for paper sessions that do not need a durable ledger.
type MemoryStorage struct {
	records []types.AuditRecord
}

// NewMemoryStorage creates an in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append stores the record in memory.
func (m *MemoryStorage) Append(_ context.Context, record types.AuditRecord) error {
	m.records = append(m.records, record)
	return nil
}

// Records returns everything appended so far.
func (m *MemoryStorage) Records() []types.AuditRecord {
	return m.records
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}
