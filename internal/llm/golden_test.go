package llm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dshills/contractpilot/internal/profile"
	"github.com/dshills/contractpilot/internal/schema"
)

// Canned responses in the shapes the supported backends actually return.

// cleanResponse is a bare JSON object, as returned in JSON mode.
const cleanResponse = `{
  "risk_score": 8,
  "risk_level": "critical",
  "summary": "임차인의 보증금 반환 청구권을 부당하게 제한합니다.",
  "issues": ["보증금 반환 시기를 임대인 재량에 맡김", "지연이자 규정 없음"],
  "legal_basis": "주택임대차보호법 제10조",
  "suggestion": "계약 종료일에 보증금을 반환하도록 수정하세요."
}`

// fencedResponse wraps the object in a markdown fence with a language tag.
const fencedResponse = "```json\n" + `{
  "risk_score": 3,
  "risk_level": "low",
  "summary": "표준적인 계약기간 조항입니다.",
  "issues": [],
  "legal_basis": "",
  "suggestion": ""
}` + "\n```"

// looseResponse has a quoted float score, an upper-case level, a stray
// backslash escape and no issues key, all of which local models produce.
const looseResponse = `{"risk_score": "6.0", "risk_level": "HIGH", "summary": "손해배상 예정액이 과다합니다 (민법 제398조\2항).", "legal_basis": "민법 제398조"}`

// contextualResponse carries the precedent-aware fields.
const contextualResponse = `{
  "risk_score": 7,
  "risk_level": "high",
  "summary": "위약금이 과다합니다.",
  "issues": ["위약금 약정이 손해배상 예정액으로 추정됨"],
  "legal_basis": "민법 제398조",
  "related_cases": ["대법원 2019다12345: 과다한 위약금은 감액 대상"],
  "suggestion": "위약금을 계약금액의 10% 이내로 조정하세요.",
  "confidence": 0.85
}`

func runGolden(t *testing.T, response string, cases []schema.SimilarCase) schema.ClauseAnalysis {
	t.Helper()
	mp := &mockProvider{responses: []string{response}}
	installMock(t, mp)
	prof, err := profile.Load("general")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	c, err := New(Options{Model: "mock", Profile: prof}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.AnalyzeClause(context.Background(), ClauseRequest{
		Text:         "제4조 (보증금 반환) 임대인은 임대인이 정한 날에 보증금을 반환한다.",
		ContractType: "임대차계약서",
		Cases:        cases,
	})
	if err != nil {
		t.Fatalf("AnalyzeClause: %v", err)
	}
	if mp.callCount != 1 {
		t.Errorf("callCount = %d, want 1 (no repair for a usable response)", mp.callCount)
	}
	return got
}

func TestGolden_Clean(t *testing.T) {
	got := runGolden(t, cleanResponse, nil)
	if got.RiskScore != 8 || got.RiskLevel != schema.RiskCritical {
		t.Errorf("score/level = %d/%q, want 8/critical", got.RiskScore, got.RiskLevel)
	}
	if len(got.Issues) != 2 {
		t.Errorf("len(Issues) = %d, want 2", len(got.Issues))
	}
	if got.LegalBasis != "주택임대차보호법 제10조" {
		t.Errorf("LegalBasis = %q", got.LegalBasis)
	}
}

func TestGolden_Fenced(t *testing.T) {
	got := runGolden(t, fencedResponse, nil)
	if got.RiskScore != 3 || got.RiskLevel != schema.RiskLow {
		t.Errorf("score/level = %d/%q, want 3/low", got.RiskScore, got.RiskLevel)
	}
	if got.Issues == nil || len(got.Issues) != 0 {
		t.Errorf("Issues = %#v, want empty non-nil", got.Issues)
	}
}

func TestGolden_Loose(t *testing.T) {
	got := runGolden(t, looseResponse, nil)
	if got.RiskScore != 6 || got.RiskLevel != schema.RiskHigh {
		t.Errorf("score/level = %d/%q, want 6/high", got.RiskScore, got.RiskLevel)
	}
	if got.Issues == nil {
		t.Error("Issues should default to an empty slice")
	}
	if got.LegalBasis != "민법 제398조" {
		t.Errorf("LegalBasis = %q", got.LegalBasis)
	}
}

func TestGolden_Contextual(t *testing.T) {
	got := runGolden(t, contextualResponse, []schema.SimilarCase{
		{CaseNumber: "2019다12345", Summary: "위약금 감액"},
	})
	if got.RiskScore != 7 {
		t.Errorf("RiskScore = %d, want 7", got.RiskScore)
	}
	if len(got.RelatedCases) != 1 {
		t.Errorf("RelatedCases = %v, want 1 entry", got.RelatedCases)
	}
	if got.Confidence == nil || *got.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", got.Confidence)
	}
}
