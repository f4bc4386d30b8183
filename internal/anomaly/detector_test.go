package anomaly

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestDetector() *Detector {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func findByType(findings []domain.AnomalyFinding, pt domain.PatternType) *domain.AnomalyFinding {
	for i := range findings {
		if findings[i].PatternType == pt {
			return &findings[i]
		}
	}
	return nil
}

// makeActorRecords creates n records for one actor, evenly spread over the
// given span, all with the same confidence.
func makeActorRecords(actor string, n int, span time.Duration, confidence int) []*domain.AuditRecord {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	recs := make([]*domain.AuditRecord, n)
	step := span / time.Duration(n-1)
	for i := 0; i < n; i++ {
		recs[i] = &domain.AuditRecord{
			ID:         "rec",
			ActorName:  actor,
			Confidence: confidence,
			StartedAt:  base.Add(time.Duration(i) * step),
		}
	}
	return recs
}

func TestDetectEmptyWindow(t *testing.T) {
	d := newTestDetector()
	if findings := d.Detect(nil); len(findings) != 0 {
		t.Errorf("expected no findings for empty window, got %d", len(findings))
	}
}

func TestTemporalSpike(t *testing.T) {
	d := newTestDetector()

	t.Run("sustained burst fires", func(t *testing.T) {
		// 25 decisions over 2 hours is 12.5/hour.
		recs := makeActorRecords("agent-a", 25, 2*time.Hour, 3)
		findings := d.detectTemporal(recs)

		f := findByType(findings, domain.PatternTemporalSpike)
		if f == nil {
			t.Fatal("expected a temporal_spike finding")
		}
		if f.Severity != domain.SeverityHigh {
			t.Errorf("severity = %v, want HIGH", f.Severity)
		}
		// confidence = rate/20 = 12.5/20
		if math.Abs(f.Confidence-0.625) > 1e-9 {
			t.Errorf("confidence = %v, want 0.625", f.Confidence)
		}
	})

	t.Run("below sample minimum is silent", func(t *testing.T) {
		recs := makeActorRecords("agent-a", 19, 30*time.Minute, 3)
		if findings := d.detectTemporal(recs); len(findings) != 0 {
			t.Errorf("expected no findings for 19 samples, got %d", len(findings))
		}
	})

	t.Run("short span is silent regardless of rate", func(t *testing.T) {
		recs := makeActorRecords("agent-a", 40, 30*time.Minute, 3)
		if findings := d.detectTemporal(recs); len(findings) != 0 {
			t.Errorf("expected no findings for sub-hour span, got %d", len(findings))
		}
	})

	t.Run("normal rate is silent", func(t *testing.T) {
		recs := makeActorRecords("agent-a", 25, 10*time.Hour, 3)
		if findings := d.detectTemporal(recs); len(findings) != 0 {
			t.Errorf("expected no findings for 2.5/hour, got %d", len(findings))
		}
	})

	t.Run("confidence capped", func(t *testing.T) {
		// 100 decisions in just over an hour is far past the cap.
		recs := makeActorRecords("agent-a", 100, 61*time.Minute, 3)
		findings := d.detectTemporal(recs)
		f := findByType(findings, domain.PatternTemporalSpike)
		if f == nil {
			t.Fatal("expected a temporal_spike finding")
		}
		if f.Confidence != 0.95 {
			t.Errorf("confidence = %v, want cap 0.95", f.Confidence)
		}
	})
}

func TestBehavioralInconsistency(t *testing.T) {
	d := newTestDetector()

	t.Run("erratic confidence fires", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 12)
		for i := range recs {
			conf := 0
			if i%2 == 1 {
				conf = 5
			}
			recs[i] = &domain.AuditRecord{ActorName: "agent-b", Confidence: conf}
		}
		findings := d.detectBehavioral(recs)

		f := findByType(findings, domain.PatternBehavioralInconsistency)
		if f == nil {
			t.Fatal("expected a behavioral_inconsistency finding")
		}
		if f.Severity != domain.SeverityMedium {
			t.Errorf("severity = %v, want MEDIUM", f.Severity)
		}
		// stddev of alternating 0/5 is 2.5, confidence 2.5/3.
		if math.Abs(f.Confidence-2.5/3.0) > 1e-9 {
			t.Errorf("confidence = %v, want %v", f.Confidence, 2.5/3.0)
		}
	})

	t.Run("steady confidence is silent", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 15)
		for i := range recs {
			recs[i] = &domain.AuditRecord{ActorName: "agent-b", Confidence: 3}
		}
		findings := d.detectBehavioral(recs)
		if f := findByType(findings, domain.PatternBehavioralInconsistency); f != nil {
			t.Error("unexpected inconsistency finding for steady actor")
		}
	})

	t.Run("below sample minimum is silent", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 9)
		for i := range recs {
			conf := 0
			if i%2 == 1 {
				conf = 5
			}
			recs[i] = &domain.AuditRecord{ActorName: "agent-b", Confidence: conf}
		}
		if findings := d.detectBehavioral(recs); len(findings) != 0 {
			t.Errorf("expected no findings for 9 samples, got %d", len(findings))
		}
	})
}

func TestLowConfidencePattern(t *testing.T) {
	d := newTestDetector()

	t.Run("sustained low confidence fires", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 25)
		for i := range recs {
			recs[i] = &domain.AuditRecord{ActorName: "agent-c", Confidence: 0}
		}
		findings := d.detectBehavioral(recs)

		f := findByType(findings, domain.PatternLowConfidence)
		if f == nil {
			t.Fatal("expected a low_confidence_pattern finding")
		}
		if f.Confidence != 0.8 {
			t.Errorf("confidence = %v, want 0.8", f.Confidence)
		}
	})

	t.Run("needs more than twenty samples", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 20)
		for i := range recs {
			recs[i] = &domain.AuditRecord{ActorName: "agent-c", Confidence: 0}
		}
		findings := d.detectBehavioral(recs)
		if f := findByType(findings, domain.PatternLowConfidence); f != nil {
			t.Error("unexpected finding at exactly 20 samples")
		}
	})
}

func TestRiskConfidenceCorrelation(t *testing.T) {
	d := newTestDetector()

	t.Run("inverse correlation fires", func(t *testing.T) {
		// Confidence steps down exactly as the risk tier steps up.
		recs := make([]*domain.AuditRecord, 25)
		for i := range recs {
			tier := i % 5
			recs[i] = &domain.AuditRecord{
				ActorName:      "agent-d",
				Confidence:     4 - tier,
				RiskAssessment: domain.RiskAssessment{OverallRiskScore: float64(tier) / 4.0},
			}
		}
		findings := d.detectCorrelation(recs)

		f := findByType(findings, domain.PatternRiskCorrelation)
		if f == nil {
			t.Fatal("expected a risk_confidence_correlation finding")
		}
		if f.Severity != domain.SeverityHigh {
			t.Errorf("severity = %v, want HIGH", f.Severity)
		}
		// r is exactly -1, confidence capped at 0.9.
		if f.Confidence != 0.9 {
			t.Errorf("confidence = %v, want cap 0.9", f.Confidence)
		}
	})

	t.Run("positive correlation is silent", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 25)
		for i := range recs {
			tier := i % 5
			recs[i] = &domain.AuditRecord{
				Confidence:     tier,
				RiskAssessment: domain.RiskAssessment{OverallRiskScore: float64(tier) / 4.0},
			}
		}
		if findings := d.detectCorrelation(recs); len(findings) != 0 {
			t.Errorf("expected no findings for positive correlation, got %d", len(findings))
		}
	})

	t.Run("below pair minimum is silent", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 19)
		for i := range recs {
			tier := i % 5
			recs[i] = &domain.AuditRecord{
				Confidence:     4 - tier,
				RiskAssessment: domain.RiskAssessment{OverallRiskScore: float64(tier) / 4.0},
			}
		}
		if findings := d.detectCorrelation(recs); len(findings) != 0 {
			t.Errorf("expected no findings for 19 pairs, got %d", len(findings))
		}
	})

	t.Run("constant confidence is silent", func(t *testing.T) {
		recs := make([]*domain.AuditRecord, 25)
		for i := range recs {
			recs[i] = &domain.AuditRecord{
				Confidence:     2,
				RiskAssessment: domain.RiskAssessment{OverallRiskScore: float64(i%5) / 4.0},
			}
		}
		if findings := d.detectCorrelation(recs); len(findings) != 0 {
			t.Errorf("expected no findings for zero variance, got %d", len(findings))
		}
	})
}

func TestDetectCombinesDetectors(t *testing.T) {
	d := newTestDetector()

	// One actor with a sustained burst of zero-confidence decisions
	// triggers both temporal and low-confidence findings.
	recs := makeActorRecords("agent-e", 30, 2*time.Hour, 0)
	findings := d.Detect(recs)

	if findByType(findings, domain.PatternTemporalSpike) == nil {
		t.Error("missing temporal_spike finding")
	}
	if findByType(findings, domain.PatternLowConfidence) == nil {
		t.Error("missing low_confidence_pattern finding")
	}
	for _, f := range findings {
		if f.ID == "" {
			t.Error("finding missing ID")
		}
		if f.DetectedAt.IsZero() {
			t.Error("finding missing detection time")
		}
	}
}
