package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/rules"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Store using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewSQLiteStorage creates a SQLite storage backend, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize applies pragmas and creates the schema.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return audit.NewStorageError("sqlite", "pragma", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return audit.NewStorageError("sqlite", "pragma", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "schema-version", err)
	}
	return nil
}

// Record persists a context exactly once.
func (s *SQLiteStorage) Record(ctx context.Context, rec *audit.RuleExecutionContext) error {
	if rec == nil || rec.ExecutionID == "" {
		return audit.NewStorageError("sqlite", "record", fmt.Errorf("execution ID cannot be empty"))
	}

	triggerData, err := json.Marshal(rec.Trigger.Data)
	if err != nil {
		return audit.NewStorageError("sqlite", "record", err)
	}
	condResults, err := json.Marshal(rec.ConditionResults)
	if err != nil {
		return audit.NewStorageError("sqlite", "record", err)
	}
	actionResults, err := json.Marshal(rec.ActionResults)
	if err != nil {
		return audit.NewStorageError("sqlite", "record", err)
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return audit.NewStorageError("sqlite", "record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_contexts (
			execution_id, rule_id, organization_type,
			trigger_type, trigger_source, trigger_time, trigger_data,
			start_time, end_time, status, matched, anomaly,
			condition_results, action_results,
			outcome, idempotency_key, metadata, recorded_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ExecutionID,
		rec.RuleID,
		string(rec.OrganizationType),
		rec.Trigger.Type,
		rec.Trigger.Source,
		rec.Trigger.Timestamp,
		string(triggerData),
		rec.StartTime,
		rec.EndTime,
		string(rec.Status),
		rec.Matched,
		rec.Anomaly,
		string(condResults),
		string(actionResults),
		rec.Outcome,
		rec.IdempotencyKey,
		string(metadata),
		time.Now(),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "record", err)
	}
	return nil
}

// Amend folds an async action completion into a persisted context.
func (s *SQLiteStorage) Amend(ctx context.Context, amendment *audit.Amendment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.NewStorageError("sqlite", "amend", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT action_results FROM execution_contexts WHERE execution_id = ?`,
		amendment.ExecutionID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return audit.ErrNotFound
	}
	if err != nil {
		return audit.NewStorageError("sqlite", "amend", err)
	}

	var results []*audit.ActionResult
	if raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &results); err != nil {
			return audit.NewStorageError("sqlite", "amend", err)
		}
	}

	rec := &audit.RuleExecutionContext{ExecutionID: amendment.ExecutionID, ActionResults: results}
	if err := applyAmendment(rec, amendment); err != nil {
		return err
	}

	updated, err := json.Marshal(rec.ActionResults)
	if err != nil {
		return audit.NewStorageError("sqlite", "amend", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE execution_contexts SET action_results = ? WHERE execution_id = ?`,
		string(updated), amendment.ExecutionID,
	); err != nil {
		return audit.NewStorageError("sqlite", "amend", err)
	}

	if err := tx.Commit(); err != nil {
		return audit.NewStorageError("sqlite", "amend", err)
	}
	return nil
}

// Get retrieves a context by execution ID.
func (s *SQLiteStorage) Get(ctx context.Context, executionID string) (*audit.RuleExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM execution_contexts WHERE execution_id = ?`, executionID)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, audit.NewStorageError("sqlite", "get", err)
		}
		return nil, audit.ErrNotFound
	}
	return scanRow(rows)
}

// Query retrieves contexts matching the filters, oldest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.RuleExecutionContext, error) {
	where, args := buildWhereClause(query)

	stmt := selectColumns + ` FROM execution_contexts` + where + ` ORDER BY start_time ASC`
	if query != nil && query.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			stmt += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []*audit.RuleExecutionContext
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return out, nil
}

// Count returns the number of contexts matching the filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM execution_contexts`+where, args...).Scan(&n)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Delete removes contexts matching the filters. Used by retention pruning.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM execution_contexts`+where, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close closes the database after a final WAL checkpoint.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

const selectColumns = `SELECT execution_id, rule_id, organization_type,
	trigger_type, trigger_source, trigger_time, trigger_data,
	start_time, end_time, status, matched, anomaly,
	condition_results, action_results,
	outcome, idempotency_key, metadata`

// buildWhereClause translates query filters into SQL.
func buildWhereClause(query *audit.Query) (string, []interface{}) {
	if query == nil {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	if query.RuleID != "" {
		clauses = append(clauses, "rule_id = ?")
		args = append(args, query.RuleID)
	}
	if query.TriggerType != "" {
		clauses = append(clauses, "trigger_type = ?")
		args = append(args, query.TriggerType)
	}
	if query.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.IdempotencyKey != "" {
		clauses = append(clauses, "idempotency_key = ?")
		args = append(args, query.IdempotencyKey)
	}
	if query.StartTime != nil {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		clauses = append(clauses, "start_time <= ?")
		args = append(args, *query.EndTime)
	}
	if len(query.ExcludeRuleIDs) > 0 {
		placeholders := strings.Repeat("?,", len(query.ExcludeRuleIDs))
		clauses = append(clauses, "rule_id NOT IN ("+placeholders[:len(placeholders)-1]+")")
		for _, id := range query.ExcludeRuleIDs {
			args = append(args, id)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanRow reads one context from a result row.
func scanRow(rows *sql.Rows) (*audit.RuleExecutionContext, error) {
	var (
		rec         audit.RuleExecutionContext
		orgType     string
		status      string
		triggerData string
		condResults string
		actResults  string
		metadata    string
	)

	err := rows.Scan(
		&rec.ExecutionID,
		&rec.RuleID,
		&orgType,
		&rec.Trigger.Type,
		&rec.Trigger.Source,
		&rec.Trigger.Timestamp,
		&triggerData,
		&rec.StartTime,
		&rec.EndTime,
		&status,
		&rec.Matched,
		&rec.Anomaly,
		&condResults,
		&actResults,
		&rec.Outcome,
		&rec.IdempotencyKey,
		&metadata,
	)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "scan", err)
	}

	rec.OrganizationType = rules.OrganizationType(orgType)
	rec.Status = audit.ExecutionStatus(status)

	if triggerData != "" && triggerData != "null" {
		if err := json.Unmarshal([]byte(triggerData), &rec.Trigger.Data); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
	}
	if condResults != "" && condResults != "null" {
		if err := json.Unmarshal([]byte(condResults), &rec.ConditionResults); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
	}
	if actResults != "" && actResults != "null" {
		if err := json.Unmarshal([]byte(actResults), &rec.ActionResults); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
	}
	if metadata != "" && metadata != "null" {
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
	}

	return &rec, nil
}
