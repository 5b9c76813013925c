package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mm_importer/core"
)

// ImportRecord is one row in the import_history table: a single import
// attempt with its outcome.
type ImportRecord struct {
	ID           int64
	RecordID     string // UUID for cross-referencing log lines
	Filename     string
	SupplierID   string
	OrderNumber  string
	OrderDate    string
	Imported     int
	Failed       int
	Skipped      int
	Capabilities string // comma-joined enrichment capability ids
	TaskID       string
	TaskStatus   string
	Status       string // "succeeded" or "failed"
	ErrorMessage string
	DurationMS   int
	CreatedAt    time.Time
}

// HistoryStore owns the import_history table: connection, migrations,
// the async writer, and retention pruning.
type HistoryStore struct {
	conn   *sql.DB
	writer *AsyncWriter
}

// OpenHistory opens (creating if needed) the history database at dbPath,
// applies pending migrations, and starts the async writer.
func OpenHistory(dbPath, migrationsPath string) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Migrations get their own connection; the migrator closes it
	if err := MigrateUpFromPath(dbPath, migrationsPath); err != nil {
		return nil, err
	}

	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return nil, err
	}

	store := &HistoryStore{conn: conn}
	store.writer = NewAsyncWriter(func(op WriteOperation) error {
		_, err := conn.Exec(op.Query, op.Args...)
		return err
	})
	store.writer.Start()
	return store, nil
}

const insertImportQuery = `
	INSERT INTO import_history (
		record_id, filename, supplier_id, order_number, order_date,
		imported, failed, skipped, capabilities, task_id, task_status,
		status, error_message, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RecordImport persists one import attempt. The write is queued on the
// async writer when possible and falls back to a synchronous insert when
// the queue is full. Returns the record UUID.
func (s *HistoryStore) RecordImport(ctx context.Context, rec ImportRecord) (string, error) {
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}

	args := []any{
		rec.RecordID, rec.Filename, rec.SupplierID, rec.OrderNumber,
		rec.OrderDate, rec.Imported, rec.Failed, rec.Skipped,
		rec.Capabilities, rec.TaskID, rec.TaskStatus,
		rec.Status, rec.ErrorMessage, rec.DurationMS,
	}

	if s.writer.Write(WriteOperation{Query: insertImportQuery, Args: args}) {
		return rec.RecordID, nil
	}

	if _, err := s.conn.ExecContext(ctx, insertImportQuery, args...); err != nil {
		return "", fmt.Errorf("failed to insert import record: %w", err)
	}
	return rec.RecordID, nil
}

// RecordResult builds and persists a record from an import outcome.
// err is the submission error, nil on success.
func (s *HistoryStore) RecordResult(ctx context.Context, filename, supplierID string, info core.OrderInfo, capabilities string, result *core.ImportResult, taskStatus core.TaskStatus, duration time.Duration, runErr error) (string, error) {
	rec := ImportRecord{
		Filename:     filepath.Base(filename),
		SupplierID:   supplierID,
		OrderNumber:  info.OrderNumber,
		OrderDate:    info.OrderDate,
		Capabilities: capabilities,
		DurationMS:   int(duration.Milliseconds()),
		Status:       "succeeded",
	}
	if result != nil {
		rec.Imported = result.ImportedCount
		rec.Failed = result.FailedCount
		rec.Skipped = result.SkippedCount
		rec.TaskID = result.EnrichmentTaskID
	}
	rec.TaskStatus = string(taskStatus)
	if runErr != nil {
		rec.Status = "failed"
		rec.ErrorMessage = runErr.Error()
	}
	return s.RecordImport(ctx, rec)
}

const selectColumns = `
	id, record_id, filename, supplier_id, order_number, order_date,
	imported, failed, skipped, capabilities, task_id, task_status,
	status, error_message, duration_ms, created_at`

// QueryRecent returns the most recent import records, newest first.
func (s *HistoryStore) QueryRecent(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM import_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// QueryBySupplier returns recent records for one supplier, newest first.
func (s *HistoryStore) QueryBySupplier(ctx context.Context, supplierID string, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM import_history WHERE supplier_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		supplierID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]ImportRecord, error) {
	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(
			&rec.ID, &rec.RecordID, &rec.Filename, &rec.SupplierID,
			&rec.OrderNumber, &rec.OrderDate, &rec.Imported, &rec.Failed,
			&rec.Skipped, &rec.Capabilities, &rec.TaskID, &rec.TaskStatus,
			&rec.Status, &rec.ErrorMessage, &rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the total number of history records.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_history`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count import history: %w", err)
	}
	return n, nil
}

// Cleanup deletes records older than retentionDays. Returns the number
// of rows removed.
func (s *HistoryStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	cutoff := fmt.Sprintf("-%d days", retentionDays)
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM import_history WHERE created_at < datetime('now', ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune import history: %w", err)
	}
	return result.RowsAffected()
}

// Flush drains pending async writes. Used by tests and shutdown.
func (s *HistoryStore) Flush() {
	s.writer.Stop()
	s.writer = NewAsyncWriter(func(op WriteOperation) error {
		_, err := s.conn.Exec(op.Query, op.Args...)
		return err
	})
	s.writer.Start()
}

// Close drains pending writes and closes the connection.
func (s *HistoryStore) Close() error {
	s.writer.Stop()
	return s.conn.Close()
}
