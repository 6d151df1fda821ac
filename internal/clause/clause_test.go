package clause

import (
	"strings"
	"testing"
	"unicode"
)

func TestIsArticle(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"제1조 목적", true},
		{"제 12 조(계약기간)", true},
		{"  제3조", true},
		{"제１조 목적", true},
		{"제\u00a01\u00a0조 목적", true},
		{"제\u30002조", true},
		{"제1항 임대인은", false},
		{"본 계약 제1조에 따라", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsArticle(c.line); got != c.want {
			t.Errorf("IsArticle(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestIsNumbered(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"1. 계약금", true},
		{"12.  잔금", true},
		{"３.\u00a0보증금", true},
		{"1.", false},
		{"1.5% 가산", false},
		{"- 1. 목록", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsNumbered(c.line); got != c.want {
			t.Errorf("IsNumbered(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestIsItem(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"제1항", true},
		{"제 2 항 임차인은", true},
		{"제２항", true},
		{"제1조", false},
		{"항목", false},
	}
	for _, c := range cases {
		if got := IsItem(c.line); got != c.want {
			t.Errorf("IsItem(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestSplit_Articles(t *testing.T) {
	src := "제1조 목적\n이 계약은...\n제2조 기간\n계약기간은 1년..."
	got := Split(src)
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %+v", len(got), got)
	}
	if got[0].Number != 1 || got[0].Title != "제1조 목적" {
		t.Errorf("clause 0 = %d %q", got[0].Number, got[0].Title)
	}
	if got[0].Content != "제1조 목적\n이 계약은..." {
		t.Errorf("clause 0 content = %q", got[0].Content)
	}
	if got[1].Number != 2 || got[1].Title != "제2조 기간" {
		t.Errorf("clause 1 = %d %q", got[1].Number, got[1].Title)
	}
}

func TestSplit_UnicodeMarkers(t *testing.T) {
	got := Split("제１조 목적\n내용\n제\u00a02조 기간\n1년")
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %+v", len(got), got)
	}
	if got[0].Title != "제１조 목적" || got[1].Number != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestSplit_PreambleIsClauseZero(t *testing.T) {
	src := "부동산 임대차 계약서\n\n제1조 목적\n본 계약은 임대차에 관한 것이다."
	got := Split(src)
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %d: %+v", len(got), got)
	}
	if got[0].Number != 0 || got[0].Title != "" || got[0].Content != "부동산 임대차 계약서" {
		t.Errorf("preamble = %+v", got[0])
	}
	if got[1].Number != 1 {
		t.Errorf("first article number = %d, want 1", got[1].Number)
	}
}

func TestSplit_BlankPreambleSkipped(t *testing.T) {
	got := Split("\n\n제1조 목적\n내용")
	if len(got) != 1 || got[0].Number != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestSplit_NoMarkers(t *testing.T) {
	src := "  당사자는 아래와 같이 합의한다.\n세부 사항은 별첨에 따른다.  "
	got := Split(src)
	if len(got) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(got))
	}
	if got[0].Number != 0 || got[0].Title != "" {
		t.Errorf("clause = %+v, want number 0 and empty title", got[0])
	}
	if got[0].Content != strings.TrimSpace(src) {
		t.Errorf("content = %q", got[0].Content)
	}
}

func TestSplit_Blank(t *testing.T) {
	for _, src := range []string{"", "   ", "\n\n\t\n"} {
		if got := Split(src); len(got) != 0 {
			t.Errorf("Split(%q) = %+v, want none", src, got)
		}
	}
}

func TestSplit_MixedMarkers(t *testing.T) {
	src := `제1조 계약금
1. 계약금은 계약 시 지급한다.
2. 잔금은 인도일에 지급한다.
제2조 해지
제1항 일방은 30일 전 통지로 해지할 수 있다.`
	got := Split(src)
	wantTitles := []string{
		"제1조 계약금",
		"1. 계약금은 계약 시 지급한다.",
		"2. 잔금은 인도일에 지급한다.",
		"제2조 해지",
		"제1항 일방은 30일 전 통지로 해지할 수 있다.",
	}
	if len(got) != len(wantTitles) {
		t.Fatalf("expected %d clauses, got %d: %+v", len(wantTitles), len(got), got)
	}
	for i, w := range wantTitles {
		if got[i].Title != w {
			t.Errorf("clause %d title = %q, want %q", i, got[i].Title, w)
		}
		if got[i].Number != i+1 {
			t.Errorf("clause %d number = %d, want %d", i, got[i].Number, i+1)
		}
	}
}

func TestSplit_NumbersStrictlyIncrease(t *testing.T) {
	src := "전문\n제1조 a\n\n제2조 b\n1. c\n제3조 d\n"
	got := Split(src)
	if len(got) == 0 {
		t.Fatal("no clauses")
	}
	for i := 1; i < len(got); i++ {
		if got[i].Number <= got[i-1].Number {
			t.Errorf("clause %d number %d not greater than %d", i, got[i].Number, got[i-1].Number)
		}
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestSplit_ReconstructsInput(t *testing.T) {
	inputs := []string{
		"제1조 목적\n이 계약은...\n제2조 기간\n계약기간은 1년...",
		"머리말\n\n제1조 목적\n  들여쓴 줄\n\n1. 항목\n제1항 세부\n끝",
		"마커 없는 본문",
	}
	for _, in := range inputs {
		var b strings.Builder
		for _, c := range Split(in) {
			b.WriteString(c.Content)
		}
		if got, want := stripSpace(b.String()), stripSpace(in); got != want {
			t.Errorf("reconstruction of %q = %q, want %q", in, got, want)
		}
	}
}

func TestSegmenter_CustomMarkers(t *testing.T) {
	s := Segmenter{Markers: []IsMarkerFn{func(l string) bool { return strings.HasPrefix(l, "Article ") }}}
	got := s.Split("Article 1 Scope\ntext\n제1조 ignored\nArticle 2 Term")
	if len(got) != 2 {
		t.Fatalf("expected 2 clauses, got %+v", got)
	}
	if !strings.Contains(got[0].Content, "제1조 ignored") {
		t.Errorf("custom markers should not split on 제N조: %q", got[0].Content)
	}
}

func TestSegmenter_ParseReader(t *testing.T) {
	got, err := Segmenter{}.ParseReader(strings.NewReader("제1조 목적\r\n내용\r\n제2조 기간\r\n1년\r\n"))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(got) != 2 || got[1].Title != "제2조 기간" || got[1].Content != "제2조 기간\n1년" {
		t.Errorf("ParseReader = %+v", got)
	}
}

func TestSegmenter_ParseFile(t *testing.T) {
	got, err := Segmenter{}.ParseFile("../../testdata/lease.txt")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(got) < 5 {
		t.Errorf("expected several clauses from lease fixture, got %d", len(got))
	}
	if _, err := (Segmenter{}).ParseFile("../../testdata/does-not-exist.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}
