package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLConfig contains configuration for the SQLite storage backend.
type SQLConfig struct {
	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// Path is the database file path. ":memory:" opens a private
	// in-memory database.
	Path string

	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is how long a write waits on a locked database.
	BusyTimeout time.Duration
}

// SQLStorage implements Storage on SQLite through database/sql.
type SQLStorage struct {
	db     *sql.DB
	config SQLConfig
	logger *slog.Logger
}

// NewSQLStorage opens (creating if needed) the database at cfg.Path and
// applies the schema.
func NewSQLStorage(cfg SQLConfig) (*SQLStorage, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Driver != DriverModernc && cfg.Driver != DriverMattn {
		return nil, NewStorageError(cfg.Driver, "open", fmt.Errorf("unsupported driver %q", cfg.Driver))
	}
	if cfg.Path == "" {
		return nil, NewStorageError(cfg.Driver, "open", errors.New("database path is required"))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewStorageError(cfg.Driver, "open", err)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	// Pragmas are per connection and ":memory:" databases are per
	// connection, so the pool holds a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLStorage{
		db:     db,
		config: cfg,
		logger: slog.Default().With("component", "audit.storage"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"driver", cfg.Driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

// initialize applies pragmas and the schema, then verifies the version.
func (s *SQLStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError(s.config.Driver, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError(s.config.Driver, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError(s.config.Driver, "create_schema", err)
	}

	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion, time.Now().UnixMilli()); err != nil {
		return NewStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(selectSchemaVersion).Scan(&version); err != nil {
		return NewStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store inserts record.
func (s *SQLStorage) Store(ctx context.Context, record *Record) error {
	var errVal any
	if record.Error != "" {
		errVal = record.Error
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID, record.RequestID, record.UserID, record.SessionID,
		record.PromptSHA256, record.PromptChars,
		record.Outcome, record.StatusCode, record.UpstreamLatencyMS, errVal,
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return NewStorageError(s.config.Driver, "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLStorage) Query(ctx context.Context, filter Filter) ([]*Record, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT " + selectColumns + " FROM exchanges"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "query", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError(s.config.Driver, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.config.Driver, "query", err)
	}

	return records, nil
}

// Count returns the number of matching records.
func (s *SQLStorage) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT COUNT(*) FROM exchanges"
	if where != "" {
		query += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, NewStorageError(s.config.Driver, "count", err)
	}
	return count, nil
}

// DeleteBefore removes records created before cutoff.
func (s *SQLStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM exchanges WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "delete", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	s.logger.Info("audit storage closed")
	return nil
}

// buildWhereClause returns the WHERE clause (without the keyword) and its
// arguments.
func buildWhereClause(filter Filter) (string, []any) {
	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UnixMilli())
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.Until.UnixMilli())
	}

	return strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record    Record
		errVal    sql.NullString
		createdMS int64
	)

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.UserID, &record.SessionID,
		&record.PromptSHA256, &record.PromptChars,
		&record.Outcome, &record.StatusCode, &record.UpstreamLatencyMS, &errVal,
		&createdMS,
	)
	if err != nil {
		return nil, err
	}

	record.Error = errVal.String
	record.CreatedAt = time.UnixMilli(createdMS).UTC()
	return &record, nil
}
