package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/dshills/contractpilot/internal/schema"
)

func TestScore_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want schema.Score
	}{
		{`7`, 7},
		{`7.0`, 7},
		{`6.6`, 7},
		{`"8"`, 8},
		{`" 3 "`, 3},
		{`0`, 1},   // clamped up
		{`15`, 10}, // clamped down
		{`-2`, 1},
		{`null`, 0},
	}
	for _, c := range cases {
		var got schema.Score
		if err := json.Unmarshal([]byte(c.in), &got); err != nil {
			t.Errorf("Unmarshal(%s): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestScore_UnmarshalJSON_Invalid(t *testing.T) {
	for _, in := range []string{`"high"`, `true`, `[]`} {
		var got schema.Score
		if err := json.Unmarshal([]byte(in), &got); err == nil {
			t.Errorf("Unmarshal(%s): expected error, got score %d", in, got)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    schema.RiskLevel
		wantErr bool
	}{
		{"low", schema.RiskLow, false},
		{" HIGH ", schema.RiskHigh, false},
		{"Critical", schema.RiskCritical, false},
		{"severe", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := schema.ParseRiskLevel(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseRiskLevel(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ParseRiskLevel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		s    schema.Score
		want schema.RiskLevel
	}{
		{1, schema.RiskLow},
		{3, schema.RiskLow},
		{4, schema.RiskMedium},
		{5, schema.RiskMedium},
		{6, schema.RiskHigh},
		{7, schema.RiskHigh},
		{8, schema.RiskCritical},
		{10, schema.RiskCritical},
	}
	for _, c := range cases {
		if got := schema.LevelForScore(c.s); got != c.want {
			t.Errorf("LevelForScore(%d) = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestAnalyzedClause_EmbedsClauseFields(t *testing.T) {
	ac := schema.AnalyzedClause{
		Clause:   schema.Clause{Number: 2, Title: "제2조 기간", Content: "제2조 기간\n계약기간은 1년"},
		Analysis: schema.ClauseAnalysis{RiskScore: 4, RiskLevel: schema.RiskMedium, Summary: "s", Issues: []string{}},
	}
	b, err := json.Marshal(ac)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"number", "title", "content", "analysis", "similar_cases"} {
		if _, ok := flat[key]; !ok {
			t.Errorf("marshalled AnalyzedClause missing top-level key %q: %s", key, b)
		}
	}
	if _, ok := flat["alternative"]; ok {
		t.Errorf("empty alternative should be omitted: %s", b)
	}
}
