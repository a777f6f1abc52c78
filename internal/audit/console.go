package audit

import (
	"context"
	"strings"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging each record.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-audit-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// Append logs the audit record.
func (c *ConsoleStorage) Append(_ context.Context, record types.AuditRecord) error {
	fields := []zap.Field{
		zap.Uint64("seq", record.Seq),
		zap.Time("timestamp", record.Timestamp),
		zap.String("market-id", record.MarketID),
		zap.String("reason-code", string(record.ReasonCode)),
		zap.String("rationale", record.Rationale),
		zap.String("config-hash", record.ConfigHash),
	}
	if len(record.Advisory) > 0 {
		fields = append(fields, zap.String("advisory", strings.Join(record.Advisory, "; ")))
	}
	if len(record.OrderIDs) > 0 {
		fields = append(fields, zap.Strings("order-ids", record.OrderIDs))
	}
	c.logger.Info("audit-record", fields...)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-audit-storage")
	return nil
}
