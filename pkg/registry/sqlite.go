package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"clearline-hq/gatekeeper/pkg/rules"
)

// SQLiteStore implements RuleStore using SQLite for persistence. Suitable
// for single-instance deployments where rules must survive restarts.
//
// The store uses a write-ahead log (WAL) for better concurrent read
// performance and periodic passive checkpoints.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	done      chan struct{}
	mu        sync.RWMutex
	closeOnce sync.Once

	upsertStmt *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite rule store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes.
	CheckpointInterval time.Duration
}

// NewSQLiteStore creates a SQLite rule store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite rule store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewStoreError("open", "", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
		done:   make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, NewStoreError("init-schema", "", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, NewStoreError("prepare", "", err)
	}

	go store.checkpointLoop(cfg.CheckpointInterval)

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		organization_type TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_org_status ON rules(organization_type, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO rules (id, name, organization_type, category, status, version, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			organization_type = excluded.organization_type,
			category = excluded.category,
			status = excluded.status,
			version = excluded.version,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`SELECT document FROM rules WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`SELECT document FROM rules ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM rules WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Upsert inserts or replaces a rule by ID.
func (s *SQLiteStore) Upsert(ctx context.Context, rule *rules.Rule) error {
	document, err := json.Marshal(rule)
	if err != nil {
		return NewStoreError("upsert", rule.ID, fmt.Errorf("marshal rule: %w", err))
	}

	updatedAt := rule.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = rule.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.upsertStmt.ExecContext(ctx,
		rule.ID,
		rule.Name,
		string(rule.OrganizationType),
		string(rule.Category),
		string(rule.Config.Status),
		rule.Config.Version,
		string(document),
		rule.CreatedAt.Unix(),
		updatedAt.Unix(),
	)
	if err != nil {
		return NewStoreError("upsert", rule.ID, err)
	}
	return nil
}

// Get retrieves a rule by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var document string
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, NewStoreError("get", id, err)
	}

	return unmarshalRule(id, document)
}

// List returns all stored rules in creation order.
func (s *SQLiteStore) List(ctx context.Context) ([]*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, NewStoreError("list", "", err)
	}
	defer rows.Close()

	var out []*rules.Rule
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, NewStoreError("list", "", err)
		}
		rule, err := unmarshalRule("", document)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStoreError("list", "", err)
	}

	return out, nil
}

// Delete removes a rule by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return NewStoreError("delete", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("delete", id, err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Close releases store resources. Idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.upsertStmt, s.getStmt, s.listStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

func (s *SQLiteStore) checkpointLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

func unmarshalRule(id, document string) (*rules.Rule, error) {
	var rule rules.Rule
	if err := json.Unmarshal([]byte(document), &rule); err != nil {
		return nil, NewStoreError("unmarshal", id, err)
	}
	return &rule, nil
}
