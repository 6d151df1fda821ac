package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Level: "loud"}); err == nil {
		t.Error("unknown level: expected error")
	}
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Error("unknown format: expected error")
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filter not applied: %q", out)
	}
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "debug", Format: "json", Redact: true})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("calling 010-1234-5678",
		"api_key", "sk-abc",
		"user", "test@example.com",
		"count", 3,
		slog.Group("req", "phone", "010-9876-5432"),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if got := rec["msg"]; got != "calling 010-****-5678" {
		t.Errorf("msg = %v, want masked phone", got)
	}
	if got := rec["api_key"]; got != MaskValue {
		t.Errorf("api_key = %v, want %q", got, MaskValue)
	}
	if got := rec["user"]; got != "te**@example.com" {
		t.Errorf("user = %v, want masked email", got)
	}
	if got := rec["count"]; got != float64(3) {
		t.Errorf("count = %v, want 3 unchanged", got)
	}
	req, _ := rec["req"].(map[string]any)
	if got := req["phone"]; got != "010-****-5432" {
		t.Errorf("req.phone = %v, want masked", got)
	}
}

func TestRedactingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(slog.NewTextHandler(&buf, nil), nil)
	logger := slog.New(h).With("password", "hunter2").WithGroup("g")
	logger.Info("ok", "email", "someone@example.com")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "someone@example.com") {
		t.Errorf("sensitive values leaked: %q", out)
	}
}

func TestNew_NoRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Redact: false})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("raw", "phone", "010-1234-5678")
	if !strings.Contains(buf.String(), "010-1234-5678") {
		t.Errorf("redaction applied although disabled: %q", buf.String())
	}
}
