// Package logging builds the sidecar's ambient slog.Logger: a handler
// wrapper that guarantees secret- and PII-shaped attribute values never
// reach a log sink unredacted, on top of whatever text/JSON handler the
// caller configures.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/pii-redactor/sidecar/internal/logsafe"
)

// maskValue replaces an attribute value whose key names it as sensitive
// outright, without even trying to preserve a scrubbed form of it.
const maskValue = "[REDACTED]"

// sensitiveKeys are attribute keys masked unconditionally. session_id is
// deliberately absent — it's the one per-request identifier the ambient
// logging layer is required to carry on every vault operation, not a
// secret.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"private_key":   true,
	"credential":    true,
	"credentials":   true,
}

// SecureHandler wraps an slog.Handler, scrubbing attribute values before
// they reach it: a key on the sensitiveKeys list is masked outright;
// every other string value is run through logsafe.String so a bearer
// token, API key, or secret-bearing URL embedded in free-form text (an
// error message, a request snippet) never survives to the sink either.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. If handler is nil, it wraps
// slog.Default()'s handler.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, logsafe.String(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		sanitized := make([]slog.Attr, len(group))
		for i, ga := range group {
			sanitized[i] = h.sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, maskValue)
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, logsafe.String(a.Value.String()))
	}

	return a
}

// New builds the sidecar's default logger at level, writing to w as text.
func New(w io.Writer, level slog.Level) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(inner))
}

// ParseLevel maps the config file's logging.level string onto a
// slog.Level, defaulting to Info for an empty or unrecognized value.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
