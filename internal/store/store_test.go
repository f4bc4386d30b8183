package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestStore(t *testing.T) domain.AuditStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	s, err := New(domain.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func sampleRecord(id, actor string, at time.Time) *domain.AuditRecord {
	return &domain.AuditRecord{
		ID:               id,
		ActorName:        actor,
		ActorType:        "analysis",
		Confidence:       3,
		StartedAt:        at,
		ProcessingTimeMs: 120,
		Decision:         "approve",
		RiskAssessment: domain.RiskAssessment{
			OverallRiskScore: 0.42,
			RiskLevel:        "medium",
		},
		EventType: "wire_transfer",
		Severity:  domain.SeverityHigh,
		Amount:    2500.00,
		EntityID:  "entity-001",
	}
}

func TestSQLiteStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetRecord", func(t *testing.T) {
		rec := sampleRecord("rec-001", "agent-a", base)

		if err := s.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}

		got, err := s.GetRecord(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetRecord failed: %v", err)
		}

		if got.ID != rec.ID {
			t.Errorf("expected ID %s, got %s", rec.ID, got.ID)
		}
		if got.ActorName != rec.ActorName {
			t.Errorf("expected actor %s, got %s", rec.ActorName, got.ActorName)
		}
		if got.RiskAssessment.OverallRiskScore != rec.RiskAssessment.OverallRiskScore {
			t.Errorf("expected risk %.2f, got %.2f",
				rec.RiskAssessment.OverallRiskScore, got.RiskAssessment.OverallRiskScore)
		}
		if got.Severity != domain.SeverityHigh {
			t.Errorf("expected severity %s, got %s", domain.SeverityHigh, got.Severity)
		}
		if !got.StartedAt.Equal(base) {
			t.Errorf("expected started_at %v, got %v", base, got.StartedAt)
		}
	})

	t.Run("GetRecordNotFound", func(t *testing.T) {
		_, err := s.GetRecord(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveRecordRequiresID", func(t *testing.T) {
		err := s.SaveRecord(ctx, &domain.AuditRecord{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("QueryWindow", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			rec := sampleRecord(
				"win-"+string(rune('a'+i)),
				"agent-win",
				base.Add(time.Duration(i)*time.Hour),
			)
			if err := s.SaveRecord(ctx, rec); err != nil {
				t.Fatalf("SaveRecord failed: %v", err)
			}
		}

		// Half-open window: includes base+1h, excludes base+3h.
		records, err := s.QueryWindow(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
		if err != nil {
			t.Fatalf("QueryWindow failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}

		// Ascending order by started_at.
		if !records[0].StartedAt.Before(records[1].StartedAt) {
			t.Error("expected records ordered by started_at ascending")
		}
	})

	t.Run("QueryByActor", func(t *testing.T) {
		records, err := s.QueryByActor(ctx, "agent-win", base)
		if err != nil {
			t.Fatalf("QueryByActor failed: %v", err)
		}
		if len(records) != 5 {
			t.Errorf("expected 5 records for agent-win, got %d", len(records))
		}

		records, err = s.QueryByActor(ctx, "agent-win", base.Add(4*time.Hour))
		if err != nil {
			t.Fatalf("QueryByActor failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record since cutoff, got %d", len(records))
		}
	})

	t.Run("CountSince", func(t *testing.T) {
		count, err := s.CountSince(ctx, base)
		if err != nil {
			t.Fatalf("CountSince failed: %v", err)
		}
		if count != 6 {
			t.Errorf("expected 6 records, got %d", count)
		}
	})

	t.Run("CountByEntity", func(t *testing.T) {
		count, err := s.CountByEntity(ctx, "entity-001", base)
		if err != nil {
			t.Fatalf("CountByEntity failed: %v", err)
		}
		if count != 6 {
			t.Errorf("expected 6 records for entity-001, got %d", count)
		}

		count, err = s.CountByEntity(ctx, "entity-unknown", base)
		if err != nil {
			t.Fatalf("CountByEntity failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 records for unknown entity, got %d", count)
		}

		if _, err := s.CountByEntity(ctx, "", base); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty entity, got %v", err)
		}
	})

	t.Run("GetAnalytics", func(t *testing.T) {
		raw, err := s.GetAnalytics(ctx)
		if err != nil {
			t.Fatalf("GetAnalytics failed: %v", err)
		}

		var analytics struct {
			TotalRecords   int64            `json:"total_records"`
			DecisionCounts map[string]int64 `json:"decision_counts"`
			ActorCounts    map[string]int64 `json:"actor_counts"`
		}
		if err := json.Unmarshal(raw, &analytics); err != nil {
			t.Fatalf("failed to parse analytics: %v", err)
		}

		if analytics.TotalRecords != 6 {
			t.Errorf("expected 6 total records, got %d", analytics.TotalRecords)
		}
		if analytics.DecisionCounts["approve"] != 6 {
			t.Errorf("expected 6 approve decisions, got %d", analytics.DecisionCounts["approve"])
		}
		if analytics.ActorCounts["agent-win"] != 5 {
			t.Errorf("expected 5 records for agent-win, got %d", analytics.ActorCounts["agent-win"])
		}
	})
}

func TestRulePersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rule := &domain.RuleConfig{
		ID:                "rule-001",
		Name:              "High Amount",
		Description:       "Flags transfers above review threshold",
		Expression:        "amount > 10000.0",
		IndicatorType:     "custom_amount_threshold",
		IndicatorSeverity: "high",
		Enabled:           true,
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := s.SaveRule(ctx, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		got, err := s.GetRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if got.Expression != rule.Expression {
			t.Errorf("expected expression %q, got %q", rule.Expression, got.Expression)
		}
		if !got.Enabled {
			t.Error("expected rule to be enabled")
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		updated := *rule
		updated.Expression = "amount > 20000.0"
		if err := s.SaveRule(ctx, &updated); err != nil {
			t.Fatalf("SaveRule update failed: %v", err)
		}

		got, err := s.GetRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if got.Expression != "amount > 20000.0" {
			t.Errorf("expected updated expression, got %q", got.Expression)
		}
	})

	t.Run("ListSkipsDisabled", func(t *testing.T) {
		disabled := &domain.RuleConfig{
			ID:            "rule-002",
			Name:          "Disabled Rule",
			Expression:    "amount > 0.0",
			IndicatorType: "noop",
			Enabled:       false,
		}
		if err := s.SaveRule(ctx, disabled); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		rules, err := s.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 enabled rule, got %d", len(rules))
		}
		if rules[0].ID != "rule-001" {
			t.Errorf("expected rule-001, got %s", rules[0].ID)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		if _, err := s.GetRule(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEngineConfigPersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("LoadBeforeSave", func(t *testing.T) {
		if _, err := s.LoadEngineConfig(ctx); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		cfg := domain.DefaultEngineConfig()
		cfg.AnomalyThreshold = 0.9

		if err := s.SaveEngineConfig(ctx, &cfg); err != nil {
			t.Fatalf("SaveEngineConfig failed: %v", err)
		}

		got, err := s.LoadEngineConfig(ctx)
		if err != nil {
			t.Fatalf("LoadEngineConfig failed: %v", err)
		}
		if got.AnomalyThreshold != 0.9 {
			t.Errorf("expected threshold 0.9, got %.2f", got.AnomalyThreshold)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		cfg := domain.DefaultEngineConfig()
		cfg.AnomalyThreshold = 0.75

		if err := s.SaveEngineConfig(ctx, &cfg); err != nil {
			t.Fatalf("SaveEngineConfig failed: %v", err)
		}

		got, err := s.LoadEngineConfig(ctx)
		if err != nil {
			t.Fatalf("LoadEngineConfig failed: %v", err)
		}
		if got.AnomalyThreshold != 0.75 {
			t.Errorf("expected threshold 0.75 after upsert, got %.2f", got.AnomalyThreshold)
		}
	})
}

func TestRebind(t *testing.T) {
	sqlite := &SQLStore{driver: "sqlite"}
	pg := &SQLStore{driver: "postgres"}

	query := "SELECT * FROM audit_records WHERE id = ? AND started_at >= ?"

	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind should be identity, got %q", got)
	}

	want := "SELECT * FROM audit_records WHERE id = $1 AND started_at >= $2"
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.StoreConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
