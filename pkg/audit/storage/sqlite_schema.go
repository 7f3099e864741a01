package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the execution-context
// database schema.
const Schema = `
-- Execution contexts table
CREATE TABLE IF NOT EXISTS execution_contexts (
    execution_id TEXT PRIMARY KEY,
    rule_id TEXT NOT NULL,
    organization_type TEXT NOT NULL,

    -- Trigger snapshot
    trigger_type TEXT NOT NULL,
    trigger_source TEXT,
    trigger_time TIMESTAMP,
    trigger_data TEXT,

    -- Execution trace
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    status TEXT NOT NULL,
    matched BOOLEAN NOT NULL,
    anomaly BOOLEAN NOT NULL DEFAULT 0,
    condition_results TEXT,
    action_results TEXT,

    -- Decision
    outcome TEXT,
    idempotency_key TEXT,
    metadata TEXT,

    recorded_time TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_exec_rule_id ON execution_contexts(rule_id);
CREATE INDEX IF NOT EXISTS idx_exec_trigger_type ON execution_contexts(trigger_type);
CREATE INDEX IF NOT EXISTS idx_exec_status ON execution_contexts(status);
CREATE INDEX IF NOT EXISTS idx_exec_start_time ON execution_contexts(start_time);
CREATE INDEX IF NOT EXISTS idx_exec_idempotency_key ON execution_contexts(idempotency_key);
`

// InsertSchemaVersion inserts the schema version into the schema_version
// table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`
