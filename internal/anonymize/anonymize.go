// Package anonymize detects Korean personal data in free text and replaces it
// with reversible masks before the text is handed to an external model.
//
// Categories are applied one after another over the running text, so a later
// category only sees what earlier categories left unmasked. Overlaps are
// therefore resolved by category order, not by input position.
//
// Patterns rely on Unicode word boundaries (Hangul syllables are word
// characters), which RE2 does not provide; the engine uses regexp2.
package anonymize

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Category names one class of personal data.
type Category string

const (
	CategoryResidentNumber Category = "resident_number"
	CategoryPhone          Category = "phone"
	CategoryEmail          Category = "email"
	CategoryBusinessNumber Category = "business_number"
	CategoryAccountNumber  Category = "account_number"
	CategoryAddress        Category = "address"
	CategoryKoreanName     Category = "korean_name"
	CategoryAmount         Category = "amount"
)

// Fixed mask literals.
const (
	BusinessNumberMask = "***-**-*****"
	AccountNumberMask  = "****-****-****"
	AmountMask         = "[금액정보]"
)

// DefaultMatchTimeout bounds a single category pass. A pass that times out
// leaves the text untouched for that category.
const DefaultMatchTimeout = 2 * time.Second

// Stats counts, per category, the substrings that were actually changed.
type Stats map[Category]int

// Total returns the sum over all categories.
func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Result is the outcome of one Anonymize call. It is owned by the caller.
type Result struct {
	Text    string   `json:"anonymized_text"`
	Mapping *Mapping `json:"mapping"`
	Stats   Stats    `json:"stats"`
}

type maskFunc func(m *regexp2.Match) string

type category struct {
	name Category
	re   *regexp2.Regexp
	mask maskFunc
}

// surnames is the fixed set of single-character surnames recognised by the
// name pattern.
const surnames = "김이박최정강조윤장임한오서신권황안송류홍전고문양손배백허유남심노하곽성차주우구신임나전민유진지엄채원천방공강현함변염양변여추도석선설마길연위표명기반왕금옥육인맹제모남궁제갈선우독고황보동방사공"

var patternSpecs = []struct {
	name Category
	expr string
	mask maskFunc
}{
	{CategoryResidentNumber, `\b(\d{6})[-\s]?(\d{7})\b`, maskResidentNumber},
	{CategoryPhone, `\b(0\d{1,2})[-.\s]?(\d{3,4})[-.\s]?(\d{4})\b`, maskPhone},
	{CategoryEmail, `\b([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`, maskEmail},
	{CategoryBusinessNumber, `\b(\d{3})[-\s]?(\d{2})[-\s]?(\d{5})\b`, maskFixed(BusinessNumberMask)},
	{CategoryAccountNumber, `\b(\d{2,6})[-\s]?(\d{2,6})[-\s]?(\d{2,6})[-\s]?(\d{0,4})\b`, maskFixed(AccountNumberMask)},
	{CategoryAddress, `(서울|부산|대구|인천|광주|대전|울산|세종|경기|강원|충북|충남|전북|전남|경북|경남|제주)` +
		`(특별시|광역시|특별자치시|도|특별자치도)?[\s]?` +
		`([가-힣]+[시군구])[\s]?` +
		`([가-힣]+[동읍면로길])?[\s]?` +
		`(\d+[-\d]*)?`, maskAddress},
	{CategoryKoreanName, `\b([` + surnames + `])([가-힣]{1,3})\b`, maskKoreanName},
	{CategoryAmount, `\b(\d{1,3}(?:,\d{3})*|\d+)\s*(원|만원|억원|천원|백만원|달러|USD|KRW)\b`, maskFixed(AmountMask)},
}

// Engine holds the compiled category list. It carries no per-call state and
// is safe for concurrent use.
type Engine struct {
	categories []category
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	timeout time.Duration
}

// WithMatchTimeout overrides DefaultMatchTimeout.
func WithMatchTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.timeout = d }
}

// New compiles the category patterns. The patterns are constants, so a
// compile failure is a programming error and panics.
func New(opts ...Option) *Engine {
	o := engineOptions{timeout: DefaultMatchTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{categories: make([]category, 0, len(patternSpecs))}
	for _, s := range patternSpecs {
		re := regexp2.MustCompile(s.expr, regexp2.None)
		re.MatchTimeout = o.timeout
		e.categories = append(e.categories, category{name: s.name, re: re, mask: s.mask})
	}
	return e
}

// Categories returns the category names in application order.
func (e *Engine) Categories() []Category {
	out := make([]Category, len(e.categories))
	for i, c := range e.categories {
		out[i] = c.name
	}
	return out
}

// Anonymize masks every detected category in text. When preserveAmounts is
// true the amount category is skipped and has no Stats entry.
//
// Invalid UTF-8 bytes are never matched and are kept as they are: categories
// run over each maximal valid run separately, and the runs are re-joined
// around the original bytes.
func (e *Engine) Anonymize(text string, preserveAmounts bool) Result {
	res := Result{
		Mapping: NewMapping(),
		Stats:   make(Stats, len(e.categories)),
	}
	segs := splitValid(text)
	for _, c := range e.categories {
		if c.name == CategoryAmount && preserveAmounts {
			continue
		}
		res.Stats[c.name] = 0
		var hits []pending
		for i := range segs {
			if !segs[i].valid {
				continue
			}
			out, h, ok := e.apply(c, segs[i].text)
			if !ok {
				continue
			}
			segs[i].text = out
			hits = append(hits, h...)
		}
		// Shorter masks are recorded first so that Restore, which walks the
		// mapping backwards, expands "홍**" before "홍*".
		sort.SliceStable(hits, func(i, j int) bool { return len(hits[i].masked) < len(hits[j].masked) })
		for _, h := range hits {
			res.Mapping.Set(h.masked, h.original)
		}
		res.Stats[c.name] += len(hits)
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, sg := range segs {
		sb.WriteString(sg.text)
	}
	res.Text = sb.String()
	return res
}

type pending struct {
	original, masked string
}

// segment is a slice of the input that is either valid UTF-8 or a run of
// invalid bytes.
type segment struct {
	text  string
	valid bool
}

// splitValid cuts s into alternating valid and invalid runs. Valid input is
// a single segment.
func splitValid(s string) []segment {
	if utf8.ValidString(s) {
		return []segment{{text: s, valid: true}}
	}
	var segs []segment
	start, valid := 0, true
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		ok := !(r == utf8.RuneError && size == 1)
		if ok != valid && i > start {
			segs = append(segs, segment{text: s[start:i], valid: valid})
			start = i
		}
		valid = ok
		i += size
	}
	if start < len(s) {
		segs = append(segs, segment{text: s[start:], valid: valid})
	}
	return segs
}

// apply runs one category over valid UTF-8 text and returns the rewritten
// text with its hits. ok is false when the pass timed out; the caller then
// keeps the text and discards the hits.
func (e *Engine) apply(c category, text string) (out string, hits []pending, ok bool) {
	out, err := c.re.ReplaceFunc(text, func(m regexp2.Match) string {
		original := m.String()
		masked := c.mask(&m)
		if masked != original {
			hits = append(hits, pending{original: original, masked: masked})
		}
		return masked
	}, -1, -1)
	if err != nil {
		return text, nil, false
	}
	return out, hits, true
}

// Restore replaces every occurrence of each masked key with its original,
// one mapping entry at a time, newest entry first. Walking backwards undoes
// later category passes before earlier ones, which matters when a later pass
// re-masked part of an earlier mask. Replacement is plain substring search:
// a restored original that happens to contain another key is substituted
// again, and collided keys restore to the last original recorded.
func (e *Engine) Restore(text string, m *Mapping) string {
	if m == nil {
		return text
	}
	for i := len(m.keys) - 1; i >= 0; i-- {
		masked := m.keys[i]
		text = strings.ReplaceAll(text, masked, m.values[masked])
	}
	return text
}

// Stats runs a full analysis pass (amounts included) and returns only the
// counts. The input is not modified.
func (e *Engine) Stats(text string) Stats {
	return e.Anonymize(text, false).Stats
}

// ContainsPersonalData reports whether any category would change text.
func (e *Engine) ContainsPersonalData(text string) bool {
	return e.Stats(text).Total() > 0
}

// Default is a shared engine with default options.
var Default = New()

// Anonymize calls Default.Anonymize.
func Anonymize(text string, preserveAmounts bool) Result {
	return Default.Anonymize(text, preserveAmounts)
}

// Restore calls Default.Restore.
func Restore(text string, m *Mapping) string {
	return Default.Restore(text, m)
}

// ── masking policies ────────────────────────────────────────────────────────

func group(m *regexp2.Match, n int) string {
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

func stars(n int) string {
	return strings.Repeat("*", n)
}

// maskResidentNumber keeps the 6-digit birth date.
func maskResidentNumber(m *regexp2.Match) string {
	return group(m, 1) + "-*******"
}

// maskPhone keeps the area code and the last four digits.
func maskPhone(m *regexp2.Match) string {
	return group(m, 1) + "-****-" + group(m, 3)
}

// maskEmail keeps the first two characters of the local part and the domain.
func maskEmail(m *regexp2.Match) string {
	user, domain := group(m, 1), group(m, 2)
	n := utf8.RuneCountInString(user)
	if n > 2 {
		return string([]rune(user)[:2]) + stars(n-2) + "@" + domain
	}
	return stars(n) + "@" + domain
}

func maskFixed(literal string) maskFunc {
	return func(*regexp2.Match) string { return literal }
}

// maskAddress keeps the province or metropolitan city only.
func maskAddress(m *regexp2.Match) string {
	return group(m, 1) + group(m, 2) + " ***"
}

// maskKoreanName keeps the surname and stars out each given-name character.
func maskKoreanName(m *regexp2.Match) string {
	return group(m, 1) + stars(utf8.RuneCountInString(group(m, 2)))
}
