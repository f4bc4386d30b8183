package scoring

import (
	"math"
	"testing"
)

func TestParseRiskResponse(t *testing.T) {
	cases := []struct {
		name string
		resp string
		want float64
		ok   bool
	}{
		{
			name: "structured json score",
			resp: `{"risk_score": 0.72, "risk_level": "high"}`,
			want: 0.72,
			ok:   true,
		},
		{
			name: "json score out of range is clamped",
			resp: `{"risk_score": 72}`,
			want: 1.0,
			ok:   true,
		},
		{
			name: "json level only",
			resp: `Assessment follows. {"risk_level": "medium"}`,
			want: 0.5,
			ok:   true,
		},
		{
			name: "json level wins over confidence",
			resp: `{"risk_level": "high", "confidence": 0.5}`,
			want: 0.8,
			ok:   true,
		},
		{
			name: "json confidence as last resort",
			resp: `{"confidence": 0.6}`,
			want: 0.6,
			ok:   true,
		},
		{
			name: "loose score pattern",
			resp: "Based on the features, risk score: 0.45 overall.",
			want: 0.45,
			ok:   true,
		},
		{
			name: "loose score out of range is clamped",
			resp: "risk_score 85",
			want: 1.0,
			ok:   true,
		},
		{
			name: "keyword tier with context bump",
			resp: "This activity looks highly suspicious and the pattern is concerning.",
			want: 0.7, // 0.5 tier + 0.2 context, averaged over one tier
			ok:   true,
		},
		{
			name: "critical outranks high risk",
			resp: "Severity is critical, a very high risk entity.",
			want: 0.9, // tiers are exclusive at the top
			ok:   true,
		},
		{
			name: "critical keyword",
			resp: "Severity is critical for this entity.",
			want: 0.9,
			ok:   true,
		},
		{
			name: "benign context alone is inconclusive",
			resp: "Everything appears normal for this account.",
			ok:   false,
		},
		{
			name: "nothing parseable",
			resp: "I cannot assess this request.",
			ok:   false,
		},
		{
			name: "empty response",
			resp: "",
			ok:   false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := parseRiskResponse(c.resp)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && math.Abs(got-c.want) > 1e-9 {
				t.Errorf("score = %v, want %v", got, c.want)
			}
		})
	}
}

func TestKeywordRiskClamped(t *testing.T) {
	got, ok := keywordRisk("critical severe extremely high risk everywhere")
	if !ok {
		t.Fatal("expected a keyword match")
	}
	if got < 0 || got > 1 {
		t.Errorf("keyword score %v outside [0,1]", got)
	}
}
