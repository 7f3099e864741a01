package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"clearline-hq/gatekeeper/pkg/config"
)

// Built-in redaction pattern names.
const (
	PatternEmail      = "email"
	PatternIBAN       = "iban"
	PatternCreditCard = "credit_card"
	PatternSSN        = "ssn"
	PatternBearer     = "bearer_token"
)

// Redactor masks personal data in log values, by content pattern and by
// sensitive attribute key.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in patterns plus any custom
// patterns from configuration. Custom patterns that fail to compile are
// skipped; config validation reports them before the logger is built.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	r.addBuiltins()

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

func (r *Redactor) addBuiltins() {
	builtins := []struct {
		name        string
		regex       string
		replacement string
	}{
		// Email: keep first character and domain
		{PatternEmail, `\b([a-zA-Z0-9])[a-zA-Z0-9._%+-]*@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`, "$1***@$2"},

		// IBAN: keep country code and check digits
		{PatternIBAN, `\b([A-Z]{2}\d{2})[A-Z0-9]{11,30}\b`, "$1***"},

		// Card numbers, 13 to 16 digits with optional separators
		{PatternCreditCard, `\b(?:\d[ -]?){12,15}\d\b`, "****-****-****-****"},

		// US social security numbers
		{PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, "***-**-****"},

		// Bearer tokens in forwarded headers
		{PatternBearer, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	}

	for _, b := range builtins {
		r.patterns = append(r.patterns, redactPattern{
			name:        b.name,
			regex:       regexp.MustCompile(b.regex),
			replacement: b.replacement,
		})
	}
}

// RedactString masks all pattern matches in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// sensitiveKeys are attribute names whose values are masked entirely,
// regardless of content.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization",
	"ssn", "national_id", "card_number", "account_number", "iban",
	"private_key",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// redactAttr rewrites one attribute, recursing into groups.
func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskValue(a.Value))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]any, 0, len(group))
		for _, ga := range group {
			redacted = append(redacted, r.redactAttr(ga))
		}
		return slog.Group(a.Key, redacted...)
	default:
		return a
	}
}

// maskValue replaces a sensitive value, keeping a short prefix of longer
// strings so operators can still correlate entries.
func maskValue(v slog.Value) string {
	if v.Kind() != slog.KindString {
		return "***"
	}
	s := v.String()
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// RedactHandler is a slog.Handler that masks personal data in records
// before delegating to the wrapped handler.
type RedactHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewRedactHandler wraps a handler with redaction.
func NewRedactHandler(inner slog.Handler, redactor *Redactor) *RedactHandler {
	return &RedactHandler{inner: inner, redactor: redactor}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.redactAttr(a)
	}
	return &RedactHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}
