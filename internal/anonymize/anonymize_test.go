package anonymize

import (
	"strings"
	"sync"
	"testing"
)

func TestAnonymize_NamePhoneEmail(t *testing.T) {
	e := New()
	in := "홍길동 010-1234-5678 test@example.com"
	res := e.Anonymize(in, true)

	want := "홍** 010-****-5678 te**@example.com"
	if res.Text != want {
		t.Errorf("Anonymize(%q).Text = %q, want %q", in, res.Text, want)
	}
	for cat, n := range map[Category]int{
		CategoryKoreanName: 1,
		CategoryPhone:      1,
		CategoryEmail:      1,
	} {
		if res.Stats[cat] != n {
			t.Errorf("Stats[%s] = %d, want %d", cat, res.Stats[cat], n)
		}
	}
	if res.Stats.Total() != 3 {
		t.Errorf("Stats.Total() = %d, want 3 (%v)", res.Stats.Total(), res.Stats)
	}
	if _, ok := res.Stats[CategoryAmount]; ok {
		t.Errorf("preserved amounts must not appear in Stats: %v", res.Stats)
	}
}

func TestAnonymize_Categories(t *testing.T) {
	cases := []struct {
		in       string
		cat      Category
		wantText string
	}{
		{"02-123-4567", CategoryPhone, "02-****-4567"},
		{"kim.lawyer@firm.co.kr", CategoryEmail, "ki********@firm.co.kr"},
		{"ab@x.io", CategoryEmail, "**@x.io"},
		{"123-45-67890", CategoryBusinessNumber, BusinessNumberMask},
		{"110-123-456789", CategoryAccountNumber, AccountNumberMask},
		{"서울특별시 강남구 역삼동 123-45", CategoryAddress, "서울특별시 ***"},
		{"홍길동", CategoryKoreanName, "홍**"},
		{"5,000,000원", CategoryAmount, AmountMask},
		{"3000만원", CategoryAmount, AmountMask},
	}
	e := New()
	for _, c := range cases {
		res := e.Anonymize(c.in, false)
		if res.Text != c.wantText {
			t.Errorf("Anonymize(%q).Text = %q, want %q", c.in, res.Text, c.wantText)
		}
		if res.Stats[c.cat] != 1 {
			t.Errorf("Anonymize(%q).Stats[%s] = %d, want 1", c.in, c.cat, res.Stats[c.cat])
		}
	}
}

func TestAnonymize_ResidentNumberKeepsBirthDate(t *testing.T) {
	e := New()
	in := "주민등록번호 900101-1234567"
	res := e.Anonymize(in, true)
	if res.Stats[CategoryResidentNumber] != 1 {
		t.Fatalf("Stats[resident_number] = %d, want 1", res.Stats[CategoryResidentNumber])
	}
	if got, ok := res.Mapping.Get("900101-*******"); !ok || got != "900101-1234567" {
		t.Errorf("Mapping[900101-*******] = %q, %v", got, ok)
	}
	if strings.Contains(res.Text, "1234567") {
		t.Errorf("Text still holds the serial part: %q", res.Text)
	}
	// The account pass re-masks the six leading digits; restore must undo both.
	if got := e.Restore(res.Text, res.Mapping); got != in {
		t.Errorf("Restore = %q, want %q", got, in)
	}
}

func TestAnonymize_PreserveAmounts(t *testing.T) {
	e := New()
	in := "계약금 5,000,000원 지급"

	kept := e.Anonymize(in, true)
	if !strings.Contains(kept.Text, "5,000,000원") {
		t.Errorf("preserveAmounts=true: amount masked in %q", kept.Text)
	}
	if _, ok := kept.Stats[CategoryAmount]; ok {
		t.Errorf("preserveAmounts=true: unexpected amount stat %v", kept.Stats)
	}

	masked := e.Anonymize(in, false)
	if !strings.Contains(masked.Text, AmountMask) || strings.Contains(masked.Text, "5,000,000") {
		t.Errorf("preserveAmounts=false: got %q", masked.Text)
	}
	if masked.Stats[CategoryAmount] != 1 {
		t.Errorf("preserveAmounts=false: Stats[amount] = %d, want 1", masked.Stats[CategoryAmount])
	}
}

func TestAnonymize_NoPersonalData(t *testing.T) {
	e := New()
	in := "This agreement is governed by the laws of Korea."
	res := e.Anonymize(in, false)
	if res.Text != in {
		t.Errorf("Text = %q, want unchanged", res.Text)
	}
	if res.Mapping.Len() != 0 || res.Stats.Total() != 0 {
		t.Errorf("expected empty mapping and stats, got %d entries, %v", res.Mapping.Len(), res.Stats)
	}
	if len(res.Stats) != len(e.Categories()) {
		t.Errorf("Stats should carry a zero entry per applied category, got %v", res.Stats)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	e := New()
	inputs := []string{
		"홍길동 010-1234-5678 test@example.com",
		"주민등록번호 900101-1234567",
		"서울특별시 강남구 역삼동 123-45",
		"계약금 5,000,000원 지급",
		"사업자등록번호 123-45-67890, 계좌 110-123-456789",
		"김철수 김철",
		"",
	}
	for _, in := range inputs {
		for _, preserve := range []bool{true, false} {
			res := e.Anonymize(in, preserve)
			if got := e.Restore(res.Text, res.Mapping); got != in {
				t.Errorf("Restore(Anonymize(%q, %v)) = %q", in, preserve, got)
			}
		}
	}
}

func TestRestore_RoundTripInvalidUTF8(t *testing.T) {
	e := New()
	cases := []struct {
		in         string
		wantMasked string
	}{
		{"계약 \xff\xfe 홍길동 010-1234-5678", "계약 \xff\xfe 홍** 010-****-5678"},
		{"\xff010-1234-5678\xfe", "\xff010-****-5678\xfe"},
		{"abc \xff def", "abc \xff def"},
		{"\xc3", "\xc3"},
	}
	for _, c := range cases {
		res := e.Anonymize(c.in, true)
		if res.Text != c.wantMasked {
			t.Errorf("Anonymize(%q) = %q, want %q", c.in, res.Text, c.wantMasked)
		}
		if got := e.Restore(res.Text, res.Mapping); got != c.in {
			t.Errorf("Restore(Anonymize(%q)) = %q", c.in, got)
		}
	}
}

func TestSplitValid(t *testing.T) {
	in := "가\xff\xfe나"
	segs := splitValid(in)
	if len(segs) != 3 || !segs[0].valid || segs[1].valid || segs[1].text != "\xff\xfe" || !segs[2].valid {
		t.Fatalf("splitValid(%q) = %+v", in, segs)
	}
	var joined string
	for _, s := range segs {
		joined += s.text
	}
	if joined != in {
		t.Errorf("segments do not rejoin: %q", joined)
	}
}

func TestRestore_CollisionOverwrites(t *testing.T) {
	e := New()
	res := e.Anonymize("홍길동 홍길순", true)
	if res.Text != "홍** 홍**" {
		t.Fatalf("Text = %q", res.Text)
	}
	if res.Stats[CategoryKoreanName] != 2 {
		t.Errorf("Stats[korean_name] = %d, want 2", res.Stats[CategoryKoreanName])
	}
	if res.Mapping.Len() != 1 {
		t.Errorf("Mapping.Len() = %d, want 1", res.Mapping.Len())
	}
	if got := e.Restore(res.Text, res.Mapping); got != "홍길순 홍길순" {
		t.Errorf("Restore = %q, want last original for both", got)
	}
}

func TestRestore_PreexistingMaskLiteral(t *testing.T) {
	// Plain substring restoration cannot tell a mask that was in the input
	// from one the engine produced.
	e := New()
	res := e.Anonymize("홍** 홍길동", true)
	if got := e.Restore(res.Text, res.Mapping); got != "홍길동 홍길동" {
		t.Errorf("Restore = %q, want %q", got, "홍길동 홍길동")
	}
}

func TestRestore_NilMapping(t *testing.T) {
	if got := New().Restore("홍**", nil); got != "홍**" {
		t.Errorf("Restore(nil mapping) = %q", got)
	}
}

func TestContainsPersonalData(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"hello world", false},
		{"call 010-1234-5678", true},
		{"price 5,000원", true},
		{"mail me: ab@x.io", true},
	}
	e := New()
	for _, c := range cases {
		if got := e.ContainsPersonalData(c.in); got != c.want {
			t.Errorf("ContainsPersonalData(%q) = %v, want %v", c.in, got, c.want)
		}
		if got := e.Stats(c.in).Total() > 0; got != c.want {
			t.Errorf("Stats(%q).Total() > 0 = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e := New()
	in := "홍길동 010-1234-5678 test@example.com 서울특별시 강남구 역삼동 1"
	want := e.Anonymize(in, false).Text

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := e.Anonymize(in, false).Text; got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent Anonymize = %q, want %q", got, want)
	}
}

func TestPackageHelpers(t *testing.T) {
	res := Anonymize("홍길동", true)
	if res.Text != "홍**" {
		t.Errorf("Anonymize = %q", res.Text)
	}
	if got := Restore(res.Text, res.Mapping); got != "홍길동" {
		t.Errorf("Restore = %q", got)
	}
}
