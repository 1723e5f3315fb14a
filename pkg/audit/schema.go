package audit

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Timestamps are stored as Unix milliseconds so both SQLite drivers read
// back identical values.
const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    prompt_sha256 TEXT NOT NULL,
    prompt_chars INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    status_code INTEGER NOT NULL,
    upstream_latency_ms INTEGER NOT NULL,
    error TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
CREATE INDEX IF NOT EXISTS idx_exchanges_user_id ON exchanges(user_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_session_id ON exchanges(session_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_outcome ON exchanges(outcome);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

const selectSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`

const insertRecord = `
INSERT INTO exchanges (
    id, request_id, user_id, session_id,
    prompt_sha256, prompt_chars,
    outcome, status_code, upstream_latency_ms, error,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const selectColumns = `id, request_id, user_id, session_id, prompt_sha256, prompt_chars,
    outcome, status_code, upstream_latency_ms, error, created_at`
