package anonymize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mapping is the reverse map from masked substring to original substring,
// kept in insertion order. Setting an existing key overwrites its value but
// keeps its position, so identical masks produced from different originals
// collapse to the last original seen.
type Mapping struct {
	keys   []string
	values map[string]string
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]string)}
}

// Set records masked → original.
func (m *Mapping) Set(masked, original string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[masked]; !ok {
		m.keys = append(m.keys, masked)
	}
	m.values[masked] = original
}

// Get returns the original for masked.
func (m *Mapping) Get(masked string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[masked]
	return v, ok
}

// Len returns the number of distinct masked keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the masked keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// MarshalJSON encodes the mapping as a JSON object, preserving order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(m.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping document order.
func (m *Mapping) UnmarshalJSON(b []byte) error {
	*m = Mapping{values: make(map[string]string)}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("anonymize: mapping: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("anonymize: mapping: expected object, got %v", tok)
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("anonymize: mapping: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("anonymize: mapping: non-string key %v", kt)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("anonymize: mapping: value for %q: %w", key, err)
		}
		m.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("anonymize: mapping: %w", err)
	}
	return nil
}
