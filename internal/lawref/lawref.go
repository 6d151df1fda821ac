// Package lawref answers rule-based legal lookups for contract review:
// required-clause checklists per contract type, an offline cache of commonly
// cited statute articles, and a small precedent set selected by keyword.
//
// All data ships embedded in the binary. A directory with the same three YAML
// files can replace it.
package lawref

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/schema"
)

//go:embed data/*.yaml
var embedded embed.FS

// Data file names, relative to the data root.
const (
	ChecklistsFile = "checklists.yaml"
	LawsFile       = "laws.yaml"
	PrecedentsFile = "precedents.yaml"
)

// MaxRelevantLaws caps RelevantLaws results.
const MaxRelevantLaws = 5

// ChecklistItem is one clause topic expected in a contract type.
type ChecklistItem struct {
	Clause   string `yaml:"clause" json:"clause"`
	Law      string `yaml:"law" json:"law"`
	Required bool   `yaml:"required" json:"required"`
}

// Article is one cached statute article.
type Article struct {
	Law     string
	Number  string
	Title   string
	Content string
}

type lawFile []struct {
	Law      string `yaml:"law"`
	Articles []struct {
		Number  string `yaml:"number"`
		Title   string `yaml:"title"`
		Content string `yaml:"content"`
	} `yaml:"articles"`
}

type precedentFile struct {
	Cases    []schema.SimilarCase `yaml:"cases"`
	Keywords []struct {
		Keyword string   `yaml:"keyword"`
		Cases   []string `yaml:"cases"`
	} `yaml:"keywords"`
}

type caseKeyword struct {
	keyword string
	cases   []int
}

// Store holds parsed reference data. It is read-only after construction and
// safe for concurrent use.
type Store struct {
	checklists map[contracttype.Type][]ChecklistItem
	articles   []Article
	cases      []schema.SimilarCase
	caseIndex  []caseKeyword
}

// New loads the embedded data set.
func New() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("lawref: %w", err)
	}
	return Load(sub)
}

// MustNew is New that panics on error. The embedded data is fixed at build
// time, so a failure here is a packaging bug.
func MustNew() *Store {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// Load reads the three data files from fsys.
func Load(fsys fs.FS) (*Store, error) {
	s := &Store{}
	if err := s.loadChecklists(fsys); err != nil {
		return nil, err
	}
	if err := s.loadLaws(fsys); err != nil {
		return nil, err
	}
	if err := s.loadPrecedents(fsys); err != nil {
		return nil, err
	}
	return s, nil
}

func readYAML(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("lawref: read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("lawref: parse %s: %w", name, err)
	}
	return nil
}

func (s *Store) loadChecklists(fsys fs.FS) error {
	var raw map[string][]ChecklistItem
	if err := readYAML(fsys, ChecklistsFile, &raw); err != nil {
		return err
	}
	s.checklists = make(map[contracttype.Type][]ChecklistItem, len(raw))
	for name, items := range raw {
		t, err := contracttype.Parse(name)
		if err != nil {
			return fmt.Errorf("lawref: %s: %w", ChecklistsFile, err)
		}
		s.checklists[t] = items
	}
	if _, ok := s.checklists[contracttype.General]; !ok {
		return fmt.Errorf("lawref: %s: no checklist for %s", ChecklistsFile, contracttype.General)
	}
	return nil
}

func (s *Store) loadLaws(fsys fs.FS) error {
	var raw lawFile
	if err := readYAML(fsys, LawsFile, &raw); err != nil {
		return err
	}
	for _, l := range raw {
		for _, a := range l.Articles {
			s.articles = append(s.articles, Article{
				Law:     l.Law,
				Number:  a.Number,
				Title:   a.Title,
				Content: a.Content,
			})
		}
	}
	return nil
}

func (s *Store) loadPrecedents(fsys fs.FS) error {
	var raw precedentFile
	if err := readYAML(fsys, PrecedentsFile, &raw); err != nil {
		return err
	}
	s.cases = raw.Cases
	byNumber := make(map[string]int, len(raw.Cases))
	for i, c := range raw.Cases {
		byNumber[c.CaseNumber] = i
	}
	for _, k := range raw.Keywords {
		ck := caseKeyword{keyword: k.Keyword}
		for _, num := range k.Cases {
			idx, ok := byNumber[num]
			if !ok {
				return fmt.Errorf("lawref: %s: keyword %q references unknown case %q", PrecedentsFile, k.Keyword, num)
			}
			ck.cases = append(ck.cases, idx)
		}
		s.caseIndex = append(s.caseIndex, ck)
	}
	return nil
}

// Checklist returns the checklist for t. Types without their own checklist
// get the general one.
func (s *Store) Checklist(t contracttype.Type) []ChecklistItem {
	if items, ok := s.checklists[t]; ok {
		return items
	}
	return s.checklists[contracttype.General]
}

// MissingClauses returns the required checklist topics of t whose name does
// not occur in any clause content. Matching is plain substring search.
func (s *Store) MissingClauses(t contracttype.Type, clauses []schema.Clause) []schema.MissingClause {
	contents := make([]string, len(clauses))
	for i, c := range clauses {
		contents[i] = c.Content
	}
	joined := strings.Join(contents, " ")

	var missing []schema.MissingClause
	for _, item := range s.Checklist(t) {
		if !item.Required || strings.Contains(joined, item.Clause) {
			continue
		}
		missing = append(missing, schema.MissingClause{
			Clause:   item.Clause,
			Law:      item.Law,
			Severity: schema.RiskHigh,
		})
	}
	return missing
}

// RelevantLaws returns up to MaxRelevantLaws cached articles whose text
// contains any legal keyword found in clauseText.
func (s *Store) RelevantLaws(clauseText string) []schema.LawReference {
	keywords := ExtractKeywords(clauseText)
	if len(keywords) == 0 {
		return nil
	}
	var refs []schema.LawReference
	for _, a := range s.articles {
		if !containsAny(a.Content, keywords) {
			continue
		}
		refs = append(refs, schema.LawReference{
			LawName:       a.Law,
			ArticleNumber: a.Number,
			ArticleTitle:  a.Title,
			Content:       a.Content,
			Source:        "cache",
		})
		if len(refs) == MaxRelevantLaws {
			break
		}
	}
	return refs
}

// SimilarCases returns up to topK precedents selected by keyword, most
// relevant first (Relevance of the clause against the case summary and text;
// ties keep keyword order). When no keyword matches, the first topK
// precedents are returned instead.
func (s *Store) SimilarCases(clauseText string, topK int) []schema.SimilarCase {
	if topK <= 0 {
		return nil
	}
	seen := make(map[int]bool)
	var matched []schema.SimilarCase
	for _, k := range s.caseIndex {
		if !strings.Contains(clauseText, k.keyword) {
			continue
		}
		for _, idx := range k.cases {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			matched = append(matched, s.cases[idx])
		}
	}
	if len(matched) == 0 {
		matched = s.cases
	} else {
		scores := make(map[string]float64, len(matched))
		for _, c := range matched {
			scores[c.CaseNumber] = Relevance(clauseText, c.Summary+" "+c.RelevantText)
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return scores[matched[i].CaseNumber] > scores[matched[j].CaseNumber]
		})
	}
	if len(matched) > topK {
		matched = matched[:topK]
	}
	return append([]schema.SimilarCase(nil), matched...)
}

// legalKeywords is searched in order by ExtractKeywords.
var legalKeywords = []string{
	"해지", "해제", "손해배상", "위약금", "계약", "의무", "권리",
	"책임", "면책", "보증", "담보", "이행", "불이행", "위반",
	"취소", "무효", "효력", "기간", "갱신", "연장", "종료",
	"양도", "전대", "임대", "임차", "매매", "대금", "지급",
	"인도", "검수", "하자", "하자담보", "경업금지", "비밀유지",
	"근로", "임금", "퇴직", "해고", "휴가", "수당",
}

// ExtractKeywords returns the legal keywords present in text, in keyword
// list order.
func ExtractKeywords(text string) []string {
	var found []string
	for _, kw := range legalKeywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// Relevance is the share of source's legal keywords that also occur in
// target, in [0, 1]. A source without keywords scores 0.
func Relevance(source, target string) float64 {
	src := ExtractKeywords(source)
	if len(src) == 0 {
		return 0
	}
	dst := make(map[string]bool)
	for _, kw := range ExtractKeywords(target) {
		dst[kw] = true
	}
	shared := 0
	for _, kw := range src {
		if dst[kw] {
			shared++
		}
	}
	return float64(shared) / float64(len(src))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
