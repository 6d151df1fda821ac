// Package render produces output from a finished analysis.Result.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/dshills/contractpilot/internal/analysis"
	"github.com/dshills/contractpilot/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of the result.
// The output round-trips through json.Unmarshal back to an equal Result.
func RenderJSON(res *analysis.Result) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("render: nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown writes a GitHub-flavoured Markdown report of res to w. Every
// clause appears in the overview table; clauses at or above the high-risk
// score also get a details block.
func RenderMarkdown(w io.Writer, res *analysis.Result) error {
	if res == nil {
		return fmt.Errorf("render: nil result")
	}
	md := markdown.NewMarkdown(w)

	writeHeader(md, res)
	writeAlert(md, res)

	md.H2("요약")
	md.PlainText("")
	md.PlainText(res.Summary)
	md.PlainText("")

	writeClauses(md, res.Clauses, detailThreshold(res))
	writeMissing(md, res.MissingClauses)
	writePersonalData(md, res)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*contractpilot 분석 결과 (%s). 법률 자문을 대체하지 않습니다.*",
		res.AnalyzedAt.Format("2006-01-02 15:04 MST"))

	if err := md.Build(); err != nil {
		return fmt.Errorf("render: markdown: %w", err)
	}
	return nil
}

func writeHeader(md *markdown.Markdown, res *analysis.Result) {
	md.H1("계약서 분석 보고서")
	md.PlainText("")

	rows := [][]string{
		{"계약서 유형", res.ContractType},
		{"분석 ID", "`" + res.ID + "`"},
		{"전체 조항", strconv.Itoa(res.TotalClauses)},
		{"고위험 조항", strconv.Itoa(res.HighRiskClauses)},
		{"평균 위험도", strconv.FormatFloat(res.AverageRiskScore, 'f', 1, 64) + " / 10"},
		{"전체 위험 수준", levelLabel(res.OverallRiskLevel)},
	}
	if res.Provider != nil {
		rows = append(rows, []string{"분석 모델", res.Provider.Provider + " / " + res.Provider.Model})
	}
	md.Table(markdown.TableSet{
		Header: []string{"항목", "값"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeAlert(md *markdown.Markdown, res *analysis.Result) {
	switch res.OverallRiskLevel {
	case schema.RiskCritical:
		md.Cautionf("심각한 위험이 발견되었습니다. 고위험 조항 %d개를 서명 전에 반드시 검토하세요.", res.HighRiskClauses)
	case schema.RiskHigh:
		md.Warningf("위험 조항이 발견되었습니다. 고위험 조항 %d개의 수정을 권고합니다.", res.HighRiskClauses)
	case schema.RiskMedium:
		md.Importantf("일부 조항에 주의가 필요합니다. 평균 위험도 %.1f.", res.AverageRiskScore)
	default:
		md.Tip("전반적으로 위험 요소가 적습니다.")
	}
	md.PlainText("")
}

func writeClauses(md *markdown.Markdown, clauses []schema.AnalyzedClause, threshold schema.Score) {
	md.H2("조항별 분석")
	md.PlainText("")
	if len(clauses) == 0 {
		md.PlainText("분석된 조항이 없습니다.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(clauses))
	for i, c := range clauses {
		rows[i] = []string{
			strconv.Itoa(c.Number),
			mdEscape(truncate(c.Title, 40)),
			strconv.Itoa(int(c.Analysis.RiskScore)),
			levelLabel(c.Analysis.RiskLevel),
			mdEscape(truncate(c.Analysis.Summary, 60)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"번호", "조항", "점수", "수준", "요약"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, c := range clauses {
		if c.Analysis.RiskScore < threshold {
			continue
		}
		md.Details(fmt.Sprintf("%s (위험도 %d)", c.Title, c.Analysis.RiskScore), clauseDetails(c))
	}
	md.PlainText("")
}

// detailThreshold is the score from which a clause gets a details block: the
// run's similar-case threshold, or the default for results that carry none.
func detailThreshold(res *analysis.Result) schema.Score {
	if res.Thresholds.SimilarCase > 0 {
		return schema.Score(res.Thresholds.SimilarCase)
	}
	return schema.Score(analysis.DefaultSimilarCaseThreshold)
}

// clauseDetails builds the body of a clause's details block.
func clauseDetails(c schema.AnalyzedClause) string {
	var sb strings.Builder
	if len(c.Analysis.Issues) > 0 {
		sb.WriteString("**문제점:**\n\n")
		for _, issue := range c.Analysis.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
		sb.WriteString("\n")
	}
	if c.Analysis.LegalBasis != "" {
		fmt.Fprintf(&sb, "**법적 근거:** %s\n\n", c.Analysis.LegalBasis)
	}
	if c.Analysis.Suggestion != "" {
		fmt.Fprintf(&sb, "**수정 제안:** %s\n\n", c.Analysis.Suggestion)
	}
	if c.Alternative != "" {
		sb.WriteString("**수정안:**\n\n")
		for _, line := range strings.Split(strings.TrimSpace(c.Alternative), "\n") {
			fmt.Fprintf(&sb, "> %s\n", line)
		}
		sb.WriteString("\n")
	}
	if len(c.SimilarCases) > 0 {
		sb.WriteString("**관련 판례:**\n\n")
		for _, cs := range c.SimilarCases {
			fmt.Fprintf(&sb, "- `%s` %s\n", cs.CaseNumber, cs.Summary)
		}
		sb.WriteString("\n")
	}
	if len(c.LawRefs) > 0 {
		sb.WriteString("**관련 법령:**\n\n")
		for _, l := range c.LawRefs {
			fmt.Fprintf(&sb, "- %s %s (%s)\n", l.LawName, l.ArticleNumber, l.ArticleTitle)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeMissing(md *markdown.Markdown, missing []schema.MissingClause) {
	if len(missing) == 0 {
		return
	}
	md.H2("누락된 필수 조항")
	md.PlainText("")
	rows := make([][]string, len(missing))
	for i, m := range missing {
		rows[i] = []string{mdEscape(m.Clause), mdEscape(m.Law), levelLabel(m.Severity)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"조항", "근거 법령", "심각도"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writePersonalData(md *markdown.Markdown, res *analysis.Result) {
	if res.PersonalData.Total() == 0 {
		return
	}
	md.H2("개인정보 탐지")
	md.PlainText("")
	var rows [][]string
	for cat, n := range res.PersonalData {
		if n > 0 {
			rows = append(rows, []string{string(cat), strconv.Itoa(n)})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	md.Table(markdown.TableSet{
		Header: []string{"유형", "건수"},
		Rows:   rows,
	})
	md.PlainText("")
	if res.Provider != nil && res.Provider.AnonymizationEnabled {
		md.Note("외부 분석 모델에는 마스킹된 텍스트만 전송되었습니다.")
		md.PlainText("")
	}
}

func levelLabel(l schema.RiskLevel) string {
	switch l {
	case schema.RiskCritical:
		return "🔴 critical"
	case schema.RiskHigh:
		return "🟠 high"
	case schema.RiskMedium:
		return "🟡 medium"
	case schema.RiskLow:
		return "🔵 low"
	}
	return string(l)
}

// truncate shortens s to maxRunes runes with an ellipsis.
func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "…"
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
