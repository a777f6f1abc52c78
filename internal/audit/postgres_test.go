package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

func TestPostgresStorage_Append(t *testing.T) {
	logger := zap.NewNop()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := newPostgresStorageFromDB(db, logger)

	rec := types.AuditRecord{
		Seq:        7,
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		MarketID:   "mkt-1",
		ReasonCode: types.ReasonMaxExposureDollars,
		Rationale:  "proposed exposure 120.00 exceeds cap 100.00",
		Advisory:   []string{"reduce size"},
		ConfigHash: "abc123",
		OrderIDs:   []string{"ord-1"},
	}

	mock.ExpectExec("INSERT INTO audit_records").
		WithArgs(
			rec.Seq,
			rec.Timestamp,
			rec.MarketID,
			string(rec.ReasonCode),
			rec.Rationale,
			sqlmock.AnyArg(), // advisory array
			rec.ConfigHash,
			sqlmock.AnyArg(), // order-id array
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := storage.Append(context.Background(), rec); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Append_Error(t *testing.T) {
	logger := zap.NewNop()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := newPostgresStorageFromDB(db, logger)

	mock.ExpectExec("INSERT INTO audit_records").
		WillReturnError(sqlmock.ErrCancelled)

	rec := types.AuditRecord{Seq: 1, Timestamp: time.Now().UTC(), MarketID: "mkt-1", ReasonCode: types.ReasonSkip}
	if err := storage.Append(context.Background(), rec); err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := newPostgresStorageFromDB(db, zap.NewNop())
	mock.ExpectClose()

	if err := storage.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}
