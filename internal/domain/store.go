package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditStore defines the interface for audit trail persistence.
// The engine reads historical decisions from it and persists its own
// configuration snapshots.
type AuditStore interface {
	// Audit record operations
	SaveRecord(ctx context.Context, rec *AuditRecord) error
	GetRecord(ctx context.Context, id string) (*AuditRecord, error)

	// QueryWindow returns records with StartedAt in [start, end),
	// ordered by StartedAt ascending.
	QueryWindow(ctx context.Context, start, end time.Time) ([]*AuditRecord, error)

	// QueryByActor returns records for a single actor since the given time.
	QueryByActor(ctx context.Context, actor string, since time.Time) ([]*AuditRecord, error)

	// CountSince returns the number of records with StartedAt >= since.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// CountByEntity returns the number of records for an entity with
	// StartedAt >= since. Used for velocity checks.
	CountByEntity(ctx context.Context, entityID string, since time.Time) (int64, error)

	// GetAnalytics returns the store's aggregate analytics blob, included
	// verbatim in audit reports.
	GetAnalytics(ctx context.Context) (json.RawMessage, error)

	// Custom indicator rule operations
	SaveRule(ctx context.Context, rule *RuleConfig) error
	GetRule(ctx context.Context, id string) (*RuleConfig, error)
	ListRules(ctx context.Context) ([]*RuleConfig, error)

	// Engine configuration snapshots
	SaveEngineConfig(ctx context.Context, cfg *EngineConfig) error
	LoadEngineConfig(ctx context.Context) (*EngineConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoreConfig holds configuration for store initialization.
type StoreConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
