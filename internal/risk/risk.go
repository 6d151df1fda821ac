// Package risk provides deterministic local logic for rolling per-clause
// scores up into a contract-level verdict. No LLM calls are made here.
package risk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/contractpilot/internal/schema"
)

// Thresholds on a single clause score.
const (
	// HighRiskScore marks a clause as high risk for counting and for
	// attaching precedents.
	HighRiskScore schema.Score = 6
	// SevereScore marks a clause for the summary and for alternative
	// wording.
	SevereScore schema.Score = 7
)

// Limits applied when building the summary text.
const (
	maxSummaryClauses = 3
	maxSummaryMissing = 5
)

// AverageScore returns the arithmetic mean of the clause scores, or 0 for an
// empty slice.
func AverageScore(clauses []schema.AnalyzedClause) float64 {
	if len(clauses) == 0 {
		return 0
	}
	total := 0
	for _, c := range clauses {
		total += int(c.Analysis.RiskScore)
	}
	return float64(total) / float64(len(clauses))
}

// CountHighRisk returns the number of clauses scoring HighRiskScore or more.
func CountHighRisk(clauses []schema.AnalyzedClause) int {
	n := 0
	for _, c := range clauses {
		if c.Analysis.RiskScore >= HighRiskScore {
			n++
		}
	}
	return n
}

// OverallLevel applies the level rules to an unrounded average.
//
// Rules (in order of precedence):
//  1. 3+ high-risk clauses or average ≥ 7 → critical
//  2. 2+ high-risk clauses or average ≥ 5 → high
//  3. 1+ high-risk clause or average ≥ 3 → medium
//  4. Otherwise → low
func OverallLevel(avg float64, highRiskCount int) schema.RiskLevel {
	switch {
	case highRiskCount >= 3 || avg >= 7:
		return schema.RiskCritical
	case highRiskCount >= 2 || avg >= 5:
		return schema.RiskHigh
	case highRiskCount >= 1 || avg >= 3:
		return schema.RiskMedium
	default:
		return schema.RiskLow
	}
}

// RoundScore rounds to one decimal place, half to even on the exact binary
// value.
func RoundScore(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 1, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// Severe returns the clauses scoring SevereScore or more, in source order.
func Severe(clauses []schema.AnalyzedClause) []schema.AnalyzedClause {
	var out []schema.AnalyzedClause
	for _, c := range clauses {
		if c.Analysis.RiskScore >= SevereScore {
			out = append(out, c)
		}
	}
	return out
}

// Summary renders the narrative summary for a report.
//
// Without severe clauses it is a fixed reassurance sentence. Otherwise it
// lists the first three severe clauses in source order, then up to five
// missing required clauses, then a closing recommendation.
func Summary(clauses []schema.AnalyzedClause, contractType string, missing []schema.MissingClause) string {
	severe := Severe(clauses)
	if len(severe) == 0 {
		return fmt.Sprintf("이 %s는 전반적으로 위험 요소가 적습니다. 일반적인 검토 후 서명을 진행해도 됩니다.", contractType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "이 %s에서 %d개의 고위험 조항이 발견되었습니다.\n\n", contractType, len(severe))
	b.WriteString("주요 문제점:\n")
	for i, c := range severe {
		if i == maxSummaryClauses {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", c.Title, c.Analysis.Summary)
	}
	if len(missing) > 0 {
		b.WriteString("\n\n누락된 필수 조항:\n")
		for i, m := range missing {
			if i == maxSummaryMissing {
				break
			}
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "- %s (%s)", m.Clause, m.Law)
		}
	}
	b.WriteString("\n\n서명 전 해당 조항들의 수정을 권고합니다.")
	return b.String()
}

// Aggregate builds the contract report. The level is decided on the
// unrounded average; only the reported average is rounded.
func Aggregate(contractType string, clauses []schema.AnalyzedClause, missing []schema.MissingClause) schema.ContractReport {
	if clauses == nil {
		clauses = []schema.AnalyzedClause{}
	}
	avg := AverageScore(clauses)
	high := CountHighRisk(clauses)
	return schema.ContractReport{
		ContractType:     contractType,
		TotalClauses:     len(clauses),
		HighRiskClauses:  high,
		AverageRiskScore: RoundScore(avg),
		OverallRiskLevel: OverallLevel(avg, high),
		Clauses:          clauses,
		MissingClauses:   missing,
		Summary:          Summary(clauses, contractType, missing),
	}
}
