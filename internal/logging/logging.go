// Package logging builds the application's slog logger. Records pass through
// RedactingHandler, which masks credentials by key and personal data by
// content before they reach the output.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dshills/contractpilot/internal/anonymize"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Redact bool
}

// MaskValue replaces credential attribute values.
const MaskValue = "***REDACTED***"

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "text", "":
		h = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	if opts.Redact {
		h = NewRedactingHandler(h, anonymize.Default)
	}
	return slog.New(h), nil
}

// credentialKeys are attribute keys whose values are always masked.
var credentialKeys = []string{"api_key", "apikey", "authorization", "password", "secret", "token"}

// RedactingHandler wraps an slog.Handler and masks sensitive content. String
// attributes and the message are run through the anonymizer (amounts kept);
// attributes whose key names a credential are replaced with MaskValue.
type RedactingHandler struct {
	handler slog.Handler
	engine  *anonymize.Engine
}

// NewRedactingHandler wraps handler. A nil engine uses anonymize.Default.
func NewRedactingHandler(handler slog.Handler, engine *anonymize.Engine) *RedactingHandler {
	if engine == nil {
		engine = anonymize.Default
	}
	return &RedactingHandler{handler: handler, engine: engine}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.mask(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted), engine: h.engine}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), engine: h.engine}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, g := range group {
			redacted[i] = h.redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}
	if isCredentialKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.mask(a.Value.String()))
	}
	return a
}

func (h *RedactingHandler) mask(s string) string {
	if s == "" {
		return s
	}
	return h.engine.Anonymize(s, true).Text
}

func isCredentialKey(key string) bool {
	k := strings.ToLower(key)
	for _, c := range credentialKeys {
		if strings.Contains(k, c) {
			return true
		}
	}
	return false
}
