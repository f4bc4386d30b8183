package scoring

import (
	"math"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func identicalWindow(n int, sev domain.Severity) []*domain.AuditRecord {
	window := make([]*domain.AuditRecord, 0, n)
	for i := 0; i < n; i++ {
		window = append(window, &domain.AuditRecord{
			EventType: "ROUTINE_CHECK",
			Severity:  sev,
			Amount:    100,
			EntityID:  "e-1",
		})
	}
	return window
}

func TestHistoricalContribution(t *testing.T) {
	ev := domain.Event{
		Severity:  domain.SeverityLow,
		EventType: "ROUTINE_CHECK",
		Amount:    100,
		EntityID:  "e-1",
	}

	t.Run("empty window contributes nothing", func(t *testing.T) {
		if got := historicalContribution(ev, nil, 0.4); got != 0 {
			t.Errorf("contribution = %v, want 0", got)
		}
	})

	t.Run("perfect matches reach the damped ceiling", func(t *testing.T) {
		// Every similarity is 1.0, so every aggregation term is 1.0
		// regardless of the severity weights: 0.85 damping then the 0.75
		// ceiling, times the 0.4 component weight.
		got := historicalContribution(ev, identicalWindow(10, domain.SeverityLow), 0.4)
		if math.Abs(got-0.3) > 1e-9 {
			t.Errorf("contribution = %v, want 0.30", got)
		}
	})

	t.Run("severity weighting normalizes by weight sum", func(t *testing.T) {
		// A low-severity window must weigh the same as a critical one when
		// all similarities are equal; only the similarities matter.
		low := historicalContribution(ev, identicalWindow(10, domain.SeverityLow), 0.4)

		evCrit := ev
		evCrit.Severity = domain.SeverityCritical
		crit := historicalContribution(evCrit, identicalWindow(10, domain.SeverityCritical), 0.4)
		if math.Abs(low-crit) > 1e-9 {
			t.Errorf("low-severity window %v != critical-severity window %v", low, crit)
		}
	})

	t.Run("unknown severity falls back to plain mean", func(t *testing.T) {
		// One unranked record drops the weighted form; the remaining
		// signals still match perfectly, so the mean carries the aggregate.
		window := identicalWindow(10, domain.SeverityLow)
		window[0].Severity = domain.Severity("bogus")
		got := historicalContribution(ev, window, 0.4)
		if math.Abs(got-0.3) > 1e-9 {
			t.Errorf("contribution = %v, want 0.30", got)
		}
	})
}

func TestRecordSimilarity(t *testing.T) {
	t.Run("identical records are fully similar", func(t *testing.T) {
		ev := domain.Event{
			Severity:  domain.SeverityHigh,
			EventType: "SUSPICIOUS_TRANSFER",
			Amount:    2500,
			EntityID:  "e-9",
		}
		rec := &domain.AuditRecord{
			Severity:  domain.SeverityHigh,
			EventType: "SUSPICIOUS_TRANSFER",
			Amount:    2500,
			EntityID:  "e-9",
		}
		if got := recordSimilarity(ev, rec); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("similarity = %v, want 1.0", got)
		}
	})

	t.Run("absent features are skipped not penalized", func(t *testing.T) {
		ev := domain.Event{EventType: "ROUTINE_CHECK", Severity: domain.SeverityLow}
		rec := &domain.AuditRecord{EventType: "ROUTINE_CHECK", Severity: domain.SeverityLow}
		if got := recordSimilarity(ev, rec); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("similarity = %v, want 1.0 over two signals", got)
		}
	})
}
