package anonymize

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMapping_SetKeepsFirstPosition(t *testing.T) {
	m := NewMapping()
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("a", "3")

	if got, want := m.Keys(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := m.Get("a"); v != "3" {
		t.Errorf("Get(a) = %q, want 3", v)
	}
}

func TestMapping_JSONPreservesOrder(t *testing.T) {
	m := NewMapping()
	m.Set("홍**", "홍길동")
	m.Set("010-****-5678", "010-1234-5678")
	m.Set("[금액정보]", "5,000원")

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"홍**":"홍길동","010-****-5678":"010-1234-5678","[금액정보]":"5,000원"}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}

	var back Mapping
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Keys(), m.Keys()) {
		t.Errorf("Keys after round trip = %v, want %v", back.Keys(), m.Keys())
	}
}

func TestMapping_UnmarshalRejectsNonObject(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `{"a":1}`} {
		var m Mapping
		if err := json.Unmarshal([]byte(in), &m); err == nil {
			t.Errorf("Unmarshal(%s): expected error", in)
		}
	}
}

func TestMapping_NilSafe(t *testing.T) {
	var m *Mapping
	if m.Len() != 0 || m.Keys() != nil {
		t.Errorf("nil mapping should be empty")
	}
	if _, ok := m.Get("x"); ok {
		t.Errorf("nil mapping Get should miss")
	}
	b, err := json.Marshal(m)
	if err != nil || string(b) != "null" {
		t.Errorf("Marshal(nil) = %s, %v", b, err)
	}
}
