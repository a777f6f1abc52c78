// Package audit keeps the append-only decision ledger: one immutable
// record per decision outcome, blocked ones included, so every skipped
// trade is explainable after the fact.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// csvColumns is the stable export column order. Appending columns is
// allowed; reordering or removing them is not.
var csvColumns = []string{"timestamp", "market_id", "reason_code", "rationale", "advisory"}

// Storage durably appends audit records.
type Storage interface {
	Append(ctx context.Context, record types.AuditRecord) error
	Close() error
}

// Recorder assigns monotonically increasing sequence numbers and appends
// records to memory and durable storage. Records are never mutated,
// reordered or deleted; duplicate timestamps cannot lose records because
// ordering is by sequence number, not wall clock.
type Recorder struct {
	mu      sync.Mutex
	seq     uint64
	records []types.AuditRecord
	pending []types.AuditRecord
	storage Storage
	logger  *zap.Logger
}

// New creates a recorder backed by the given storage.
func New(storage Storage, logger *zap.Logger) *Recorder {
	return &Recorder{
		storage: storage,
		logger:  logger,
	}
}

// Record appends one audit record. The in-memory ledger always receives
// it; if the durable write fails a PersistenceError is returned and the
// record is queued for retry at the next cycle boundary, so the caller
// can abort the action it was about to take rather than proceed
// un-audited.
func (r *Recorder) Record(ctx context.Context, record types.AuditRecord) (types.AuditRecord, error) {
	r.mu.Lock()
	r.seq++
	record.Seq = r.seq
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	r.records = append(r.records, record)
	r.mu.Unlock()

	RecordsTotal.WithLabelValues(string(record.ReasonCode)).Inc()

	if err := r.storage.Append(ctx, record); err != nil {
		WriteFailuresTotal.Inc()
		r.mu.Lock()
		r.pending = append(r.pending, record)
		r.mu.Unlock()
		r.logger.Error("audit-write-failed",
			zap.Uint64("seq", record.Seq),
			zap.String("market-id", record.MarketID),
			zap.Error(err))
		return record, &types.PersistenceError{Op: "audit append", Err: err}
	}

	return record, nil
}

// RetryPending re-attempts durable writes that failed earlier. The
// orchestrator calls this at each cycle boundary.
func (r *Recorder) RetryPending(ctx context.Context) int {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	remaining := make([]types.AuditRecord, 0)
	flushed := 0
	for _, record := range pending {
		if err := r.storage.Append(ctx, record); err != nil {
			remaining = append(remaining, record)
			continue
		}
		flushed++
	}

	if len(remaining) > 0 {
		r.mu.Lock()
		r.pending = append(remaining, r.pending...)
		r.mu.Unlock()
	}
	return flushed
}

// All returns every record in sequence order.
func (r *Recorder) All() []types.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.AuditRecord, len(r.records))
	copy(out, r.records)
	return out
}

// ByMarket returns records for one market, in sequence order.
func (r *Recorder) ByMarket(marketID string) []types.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.AuditRecord, 0)
	for _, record := range r.records {
		if record.MarketID == marketID {
			out = append(out, record)
		}
	}
	return out
}

// ByTimeRange returns records with from <= timestamp < to, in sequence
// order.
func (r *Recorder) ByTimeRange(from, to time.Time) []types.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.AuditRecord, 0)
	for _, record := range r.records {
		if record.Timestamp.Before(from) || !record.Timestamp.Before(to) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// ExportCSV writes every record with the stable column order. Repeated
// exports of the same ledger produce byte-identical output.
func (r *Recorder) ExportCSV(w io.Writer) error {
	records := r.All()

	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		row := []string{
			record.Timestamp.UTC().Format(time.RFC3339Nano),
			record.MarketID,
			string(record.ReasonCode),
			record.Rationale,
			strings.Join(record.Advisory, "; "),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", record.Seq, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Close closes the underlying storage.
func (r *Recorder) Close() error {
	return r.storage.Close()
}
