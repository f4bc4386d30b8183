// Package anomaly implements statistical anomaly detection over windows
// of audit records. Three independent detectors run per pass: temporal
// activity spikes, behavioral confidence drift, and risk/confidence
// correlation inversion. Detectors only read the window; each finding is
// a fresh value owned by the caller.
package anomaly

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Detector runs the anomaly detection pipeline. Safe for concurrent use.
type Detector struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a detector.
func New(logger *slog.Logger) *Detector {
	return &Detector{
		logger: logger.With("component", "anomaly"),
		now:    time.Now,
	}
}

// Detect runs all detectors over the window and returns the combined
// findings. An empty or undersized window produces no findings and no
// error; detectors gate on their own minimum sample counts.
func (d *Detector) Detect(records []*domain.AuditRecord) []domain.AnomalyFinding {
	var findings []domain.AnomalyFinding

	findings = append(findings, d.detectTemporal(records)...)
	findings = append(findings, d.detectBehavioral(records)...)
	findings = append(findings, d.detectCorrelation(records)...)

	if len(findings) > 0 {
		d.logger.Info("anomalies detected",
			"records", len(records),
			"findings", len(findings))
	}
	return findings
}

func (d *Detector) newFinding(pt domain.PatternType, desc string, confidence float64, sev domain.Severity, evidence map[string]any) domain.AnomalyFinding {
	return domain.AnomalyFinding{
		ID:          uuid.New().String(),
		PatternType: pt,
		Description: desc,
		Confidence:  confidence,
		Severity:    sev,
		Evidence:    evidence,
		DetectedAt:  d.now(),
	}
}

// groupByActor buckets records by actor name, skipping records without one.
func groupByActor(records []*domain.AuditRecord) map[string][]*domain.AuditRecord {
	groups := make(map[string][]*domain.AuditRecord)
	for _, rec := range records {
		if rec.ActorName == "" {
			continue
		}
		groups[rec.ActorName] = append(groups[rec.ActorName], rec)
	}
	return groups
}
