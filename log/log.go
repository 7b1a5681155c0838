package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	traceField = "logging.googleapis.com/trace"

	TraceHeader = "X-Cloud-Trace-Context"
)

type (
	ctxKey   struct{}
	traceKey struct{}
)

// CloudLoggingHandler is a slog.Handler implementation for Google Cloud Functions.
type CloudLoggingHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

// NewCloudLoggingHandler creates a new handler that writes logs in Google Cloud structured format.
func NewCloudLoggingHandler(w io.Writer, level slog.Leveler) *CloudLoggingHandler {
	if w == nil {
		w = os.Stdout
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &CloudLoggingHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

// Handle processes log records.
func (h *CloudLoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := map[string]any{
		"severity": Severity(r.Level),
		"time":     ts.Format(time.RFC3339Nano),
		"message":  r.Message,
	}
	if traceID := TraceFromContext(ctx); traceID != "" {
		entry[traceField] = traceID
	}
	for k, v := range recordAttrs(h.attrs, r) {
		entry[k] = v
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	jsonData = append(jsonData, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(jsonData)
	return err
}

func (h *CloudLoggingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs returns a new handler with additional attributes.
func (h *CloudLoggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CloudLoggingHandler{
		mu:    h.mu,
		w:     h.w,
		level: h.level,
		attrs: appendAttrs(h.attrs, attrs),
	}
}

// WithGroup returns the same handler, as grouping is not implemented.
func (h *CloudLoggingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Severity maps slog levels onto Cloud Logging severities.
func Severity(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TraceFromHeader turns "TRACE_ID/SPAN_ID;o=1" into the trace resource name
// Cloud Logging uses to group entries of one request.
func TraceFromHeader(projectID, header string) string {
	if projectID == "" || header == "" {
		return ""
	}
	traceID, _, _ := strings.Cut(header, "/")
	traceID, _, _ = strings.Cut(traceID, ";")
	if traceID == "" {
		return ""
	}
	return "projects/" + projectID + "/traces/" + traceID
}

func WithTrace(ctx context.Context, trace string) context.Context {
	if trace == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, trace)
}

func TraceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	trace, _ := ctx.Value(traceKey{}).(string)
	return trace
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(NewCloudLoggingHandler(os.Stdout, slog.LevelInfo))
}

func appendAttrs(base, extra []slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, len(base)+len(extra))
	copy(attrs, base)
	copy(attrs[len(base):], extra)
	return attrs
}

// recordAttrs flattens handler and record attributes, record ones last.
func recordAttrs(handlerAttrs []slog.Attr, r slog.Record) map[string]any {
	fields := make(map[string]any, len(handlerAttrs)+r.NumAttrs())
	for _, attr := range handlerAttrs {
		fields[attr.Key] = attrValue(attr.Value)
	}
	r.Attrs(func(attr slog.Attr) bool {
		fields[attr.Key] = attrValue(attr.Value)
		return true
	})
	return fields
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}
