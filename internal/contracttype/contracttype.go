// Package contracttype guesses the category of a contract from its text.
package contracttype

import (
	"fmt"
	"strings"
)

// Type is a contract category. Its value is the Korean display name used in
// reports and summaries.
type Type string

const (
	Investment Type = "투자계약서"
	Employment Type = "근로계약서"
	Lease      Type = "임대차계약서"
	Service    Type = "용역계약서"
	NDA        Type = "NDA"
	// Sales is never produced by Classify; it can only be selected
	// explicitly and exists so its checklist is reachable.
	Sales   Type = "매매계약서"
	General Type = "일반계약서"
)

// All lists every type in declaration order.
var All = []Type{Investment, Employment, Lease, Service, NDA, Sales, General}

type candidate struct {
	typ      Type
	keywords []string
}

// candidates is the classification table. Order matters: ties go to the
// earlier entry.
var candidates = []candidate{
	{Investment, []string{"투자금", "지분", "우선주", "투자자", "배당"}},
	{Employment, []string{"근로자", "임금", "근무시간", "휴가", "해고"}},
	{Lease, []string{"임대인", "임차인", "월세", "보증금", "계약기간"}},
	{Service, []string{"용역", "대금", "납품", "검수", "하자"}},
	{NDA, []string{"기밀", "비밀유지", "정보", "공개금지"}},
}

// Score is the number of distinct keywords of one type found in a text.
type Score struct {
	Type    Type     `json:"type"`
	Score   int      `json:"score"`
	Matched []string `json:"matched"`
}

// Scores returns the per-type keyword hits in classification order.
func Scores(text string) []Score {
	lower := strings.ToLower(text)
	out := make([]Score, 0, len(candidates))
	for _, c := range candidates {
		s := Score{Type: c.typ, Matched: []string{}}
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				s.Matched = append(s.Matched, kw)
			}
		}
		s.Score = len(s.Matched)
		out = append(out, s)
	}
	return out
}

// Classify returns the type with the strictly highest score, or General when
// no keyword matches. The empty string is General.
func Classify(text string) Type {
	best, bestScore := General, 0
	for _, s := range Scores(text) {
		if s.Score > bestScore {
			best, bestScore = s.Type, s.Score
		}
	}
	return best
}

var aliases = map[string]Type{
	"investment": Investment,
	"employment": Employment,
	"lease":      Lease,
	"service":    Service,
	"nda":        NDA,
	"비밀유지계약서":    NDA,
	"sales":      Sales,
	"general":    General,
}

// Parse resolves an explicit type name: the Korean display name, "NDA",
// "비밀유지계약서" or an English alias such as "lease". Case and surrounding
// whitespace are ignored.
func Parse(name string) (Type, error) {
	n := strings.TrimSpace(name)
	for _, t := range All {
		if strings.EqualFold(n, string(t)) {
			return t, nil
		}
	}
	if t, ok := aliases[strings.ToLower(n)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("contracttype: unknown contract type %q", name)
}

// ParseOrGeneral is Parse with General as the fallback for unknown names.
func ParseOrGeneral(name string) Type {
	t, err := Parse(name)
	if err != nil {
		return General
	}
	return t
}

// String returns the display name.
func (t Type) String() string { return string(t) }
