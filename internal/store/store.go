// Package store provides audit trail persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLStore implements domain.AuditStore using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// New creates a new store based on configuration.
func New(cfg domain.StoreConfig) (domain.AuditStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRecord stores an audit record.
func (s *SQLStore) SaveRecord(ctx context.Context, rec *domain.AuditRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_records (
			id, actor_name, actor_type, confidence, started_at,
			processing_time_ms, decision, risk_score, risk_level,
			event_type, severity, amount, entity_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rec.ID, rec.ActorName, rec.ActorType, rec.Confidence, rec.StartedAt,
		rec.ProcessingTimeMs, rec.Decision,
		rec.RiskAssessment.OverallRiskScore, rec.RiskAssessment.RiskLevel,
		rec.EventType, string(rec.Severity), rec.Amount, rec.EntityID,
	)
	return err
}

// GetRecord retrieves an audit record by ID.
func (s *SQLStore) GetRecord(ctx context.Context, id string) (*domain.AuditRecord, error) {
	query := `
		SELECT id, actor_name, actor_type, confidence, started_at,
			   processing_time_ms, decision, risk_score, risk_level,
			   event_type, severity, amount, entity_id
		FROM audit_records
		WHERE id = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// QueryWindow returns records with started_at in [start, end), ordered by
// started_at ascending.
func (s *SQLStore) QueryWindow(ctx context.Context, start, end time.Time) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, actor_name, actor_type, confidence, started_at,
			   processing_time_ms, decision, risk_score, risk_level,
			   event_type, severity, amount, entity_id
		FROM audit_records
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at ASC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

// QueryByActor returns records for a single actor since the given time.
func (s *SQLStore) QueryByActor(ctx context.Context, actor string, since time.Time) ([]*domain.AuditRecord, error) {
	query := `
		SELECT id, actor_name, actor_type, confidence, started_at,
			   processing_time_ms, decision, risk_score, risk_level,
			   event_type, severity, amount, entity_id
		FROM audit_records
		WHERE actor_name = ? AND started_at >= ?
		ORDER BY started_at ASC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), actor, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

// CountSince returns the number of records with started_at >= since.
func (s *SQLStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_records WHERE started_at >= ?`

	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(query), since).Scan(&count)
	return count, err
}

// CountByEntity returns the number of records for an entity since the
// given time. Used for velocity checks.
func (s *SQLStore) CountByEntity(ctx context.Context, entityID string, since time.Time) (int64, error) {
	if entityID == "" {
		return 0, fmt.Errorf("%w: entityID is required", ErrInvalidInput)
	}

	query := `SELECT COUNT(*) FROM audit_records WHERE entity_id = ? AND started_at >= ?`

	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(query), entityID, since).Scan(&count)
	return count, err
}

// GetAnalytics returns aggregate statistics over the full audit trail as
// a JSON blob for inclusion in reports.
func (s *SQLStore) GetAnalytics(ctx context.Context) (json.RawMessage, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records`).Scan(&total); err != nil {
		return nil, err
	}

	decisions, err := s.countGroup(ctx, `SELECT decision, COUNT(*) FROM audit_records WHERE decision != '' GROUP BY decision`)
	if err != nil {
		return nil, err
	}
	actors, err := s.countGroup(ctx, `SELECT actor_name, COUNT(*) FROM audit_records GROUP BY actor_name`)
	if err != nil {
		return nil, err
	}

	analytics := map[string]any{
		"total_records":   total,
		"decision_counts": decisions,
		"actor_counts":    actors,
	}
	return json.Marshal(analytics)
}

func (s *SQLStore) countGroup(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// SaveRule stores an indicator rule, replacing any existing version.
func (s *SQLStore) SaveRule(ctx context.Context, rule *domain.RuleConfig) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO indicator_rules (
			id, name, description, expression, indicator_type, indicator_severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			indicator_type = excluded.indicator_type,
			indicator_severity = excluded.indicator_severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.IndicatorType, rule.IndicatorSeverity, enabled,
		now, now,
	)
	return err
}

// GetRule retrieves an indicator rule by ID.
func (s *SQLStore) GetRule(ctx context.Context, id string) (*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, expression, indicator_type, indicator_severity, enabled, created_at, updated_at
		FROM indicator_rules
		WHERE id = ?
	`

	var rule domain.RuleConfig
	var enabled int

	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
		&rule.IndicatorType, &rule.IndicatorSeverity, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListRules retrieves all enabled indicator rules.
func (s *SQLStore) ListRules(ctx context.Context) ([]*domain.RuleConfig, error) {
	query := `
		SELECT id, name, description, expression, indicator_type, indicator_severity, enabled, created_at, updated_at
		FROM indicator_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.RuleConfig
	for rows.Next() {
		var rule domain.RuleConfig
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
			&rule.IndicatorType, &rule.IndicatorSeverity, &enabled,
			&rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// SaveEngineConfig persists the engine tunables as a single JSON row.
func (s *SQLStore) SaveEngineConfig(ctx context.Context, cfg *domain.EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidInput)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engine_config (id, config, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, s.rebind(query), string(data), time.Now().UTC())
	return err
}

// LoadEngineConfig returns the persisted engine tunables, or ErrNotFound
// when none have been saved yet.
func (s *SQLStore) LoadEngineConfig(ctx context.Context) (*domain.EngineConfig, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM engine_config WHERE id = 1`).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.EngineConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return &cfg, nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var severity string

	err := row.Scan(
		&rec.ID, &rec.ActorName, &rec.ActorType, &rec.Confidence, &rec.StartedAt,
		&rec.ProcessingTimeMs, &rec.Decision,
		&rec.RiskAssessment.OverallRiskScore, &rec.RiskAssessment.RiskLevel,
		&rec.EventType, &severity, &rec.Amount, &rec.EntityID,
	)
	if err != nil {
		return nil, err
	}

	rec.Severity = domain.Severity(severity)
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*domain.AuditRecord, error) {
	var records []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
