package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-audit-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresStorageFromDB wires an existing handle, for tests.
func newPostgresStorageFromDB(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// Append inserts the record into the audit_records table.
func (p *PostgresStorage) Append(ctx context.Context, record types.AuditRecord) error {
	query := `
		INSERT INTO audit_records (
			seq, recorded_at, market_id, reason_code, rationale,
			advisory, config_hash, order_ids
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		record.Seq,
		record.Timestamp,
		record.MarketID,
		string(record.ReasonCode),
		record.Rationale,
		pq.Array(record.Advisory),
		record.ConfigHash,
		pq.Array(record.OrderIDs),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	p.logger.Debug("audit-record-stored",
		zap.Uint64("seq", record.Seq),
		zap.String("market-id", record.MarketID),
		zap.String("reason-code", string(record.ReasonCode)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-audit-storage")
	return p.db.Close()
}
