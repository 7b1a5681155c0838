package log

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/logging"
)

// APIHandler sends records through the Cloud Logging API instead of stdout.
// Used when the process runs outside Cloud Functions.
type APIHandler struct {
	logger *logging.Logger
	level  slog.Leveler
	attrs  []slog.Attr
}

func NewAPIHandler(logger *logging.Logger, level slog.Leveler) *APIHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &APIHandler{
		logger: logger,
		level:  level,
	}
}

func (h *APIHandler) Handle(ctx context.Context, r slog.Record) error {
	payload := recordAttrs(h.attrs, r)
	payload["message"] = r.Message

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	h.logger.Log(logging.Entry{
		Timestamp: ts,
		Severity:  apiSeverity(r.Level),
		Payload:   payload,
		Trace:     TraceFromContext(ctx),
	})
	return nil
}

// Flush blocks until buffered entries are sent.
func (h *APIHandler) Flush() error {
	return h.logger.Flush()
}

func (h *APIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *APIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &APIHandler{
		logger: h.logger,
		level:  h.level,
		attrs:  appendAttrs(h.attrs, attrs),
	}
}

func (h *APIHandler) WithGroup(_ string) slog.Handler {
	return h
}

func apiSeverity(level slog.Level) logging.Severity {
	return logging.ParseSeverity(Severity(level))
}
