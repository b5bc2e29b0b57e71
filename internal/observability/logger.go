package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog logger, debug-level in dev. When
// tracing is enabled wrap the handler with NewTraceHandler so log
// lines carry trace/span ids.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
