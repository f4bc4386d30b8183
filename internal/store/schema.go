package store

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaAuditRecords = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    actor_name TEXT NOT NULL,
    actor_type TEXT,
    confidence INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    processing_time_ms INTEGER NOT NULL DEFAULT 0,
    decision TEXT,
    risk_score REAL NOT NULL DEFAULT 0,
    risk_level TEXT,
    event_type TEXT,
    severity TEXT,
    amount REAL NOT NULL DEFAULT 0,
    entity_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_records_started ON audit_records(started_at);
CREATE INDEX IF NOT EXISTS idx_audit_records_actor ON audit_records(actor_name, started_at);
CREATE INDEX IF NOT EXISTS idx_audit_records_entity ON audit_records(entity_id, started_at);
`

const schemaIndicatorRules = `
CREATE TABLE IF NOT EXISTS indicator_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    indicator_type TEXT NOT NULL,
    indicator_severity TEXT NOT NULL DEFAULT 'medium',
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_indicator_rules_enabled ON indicator_rules(enabled);
`

// schemaEngineConfig holds the persisted engine tunables as a single
// JSON row so a restart resumes with the last applied configuration.
const schemaEngineConfig = `
CREATE TABLE IF NOT EXISTS engine_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    config TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAuditRecords,
		schemaIndicatorRules,
		schemaEngineConfig,
	}
}
