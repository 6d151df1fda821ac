// Package schema defines the canonical data types exchanged between the
// segmenter, the clause analyzer and the risk aggregator.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RiskLevel is the coarse risk classification of a clause or a whole contract.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether l is one of the four known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// ParseRiskLevel normalizes case and surrounding whitespace and returns the
// matching level. Unknown values return an error.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("schema: unknown risk level %q", s)
	}
	return l, nil
}

// LevelForScore maps a 1–10 clause score onto a risk level. It is used only
// when a provider omits or garbles risk_level.
func LevelForScore(s Score) RiskLevel {
	switch {
	case s >= 8:
		return RiskCritical
	case s >= 6:
		return RiskHigh
	case s >= 4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Score bounds.
const (
	MinScore Score = 1
	MaxScore Score = 10
)

// Score is a per-clause risk rating in [MinScore, MaxScore].
//
// Providers are inconsistent about the JSON type of risk_score: integers,
// floats ("7.0") and quoted numbers ("7") all occur. UnmarshalJSON accepts all
// three, rounds to the nearest integer and clamps into range.
type Score int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("schema: risk_score: %w", err)
		}
		raw = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("schema: risk_score %s is not a number", string(b))
	}
	*s = ClampScore(int(math.Round(f)))
	return nil
}

// ClampScore forces n into [MinScore, MaxScore].
func ClampScore(n int) Score {
	if n < int(MinScore) {
		return MinScore
	}
	if n > int(MaxScore) {
		return MaxScore
	}
	return Score(n)
}

// Clause is one numbered unit of contract text as produced by the segmenter.
// Content is the verbatim source slice, never anonymized.
type Clause struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ClauseAnalysis is the risk assessment returned by the external analysis
// collaborator for a single clause.
//
// RelatedCases and Confidence are only populated by the context-enriched
// analysis prompt; the plain prompt leaves them empty.
type ClauseAnalysis struct {
	RiskScore    Score     `json:"risk_score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	Summary      string    `json:"summary"`
	Issues       []string  `json:"issues"`
	LegalBasis   string    `json:"legal_basis,omitempty"`
	Suggestion   string    `json:"suggestion,omitempty"`
	RelatedCases []string  `json:"related_cases,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
}

// SimilarCase is a court precedent attached to a risky clause.
type SimilarCase struct {
	CaseNumber   string `json:"case_number" yaml:"case_number"`
	Summary      string `json:"summary" yaml:"summary"`
	Court        string `json:"court" yaml:"court"`
	Date         string `json:"date" yaml:"date"`
	RelevantText string `json:"relevant_text" yaml:"relevant_text"`
}

// LawReference points at a statutory article relevant to a clause.
type LawReference struct {
	LawName       string `json:"law_name"`
	ArticleNumber string `json:"article_number"`
	ArticleTitle  string `json:"article_title"`
	Content       string `json:"content"`
	Source        string `json:"source"`
}

// AnalyzedClause is a Clause together with its analysis. It is created once
// per clause after the analysis returns and is not mutated afterwards.
type AnalyzedClause struct {
	Clause
	Analysis     ClauseAnalysis `json:"analysis"`
	SimilarCases []SimilarCase  `json:"similar_cases"`
	LawRefs      []LawReference `json:"law_references,omitempty"`
	Alternative  string         `json:"alternative,omitempty"`
}

// MissingClause is a required checklist topic absent from the contract.
type MissingClause struct {
	Clause   string    `json:"clause"`
	Law      string    `json:"law"`
	Severity RiskLevel `json:"severity"`
}

// ContractReport is the aggregate over all analyzed clauses of one document.
// It is recomputed wholesale on every run.
type ContractReport struct {
	ContractType     string           `json:"contract_type"`
	TotalClauses     int              `json:"total_clauses"`
	HighRiskClauses  int              `json:"high_risk_clauses"`
	AverageRiskScore float64          `json:"average_risk_score"`
	OverallRiskLevel RiskLevel        `json:"overall_risk_level"`
	Clauses          []AnalyzedClause `json:"clauses"`
	MissingClauses   []MissingClause  `json:"missing_clauses,omitempty"`
	Summary          string           `json:"summary"`
}
