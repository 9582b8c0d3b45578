package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs a text handler on stderr as the default logger.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	InitSlogWithHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func InitSlogWithHandler(handler slog.Handler) {
	slog.SetDefault(slog.New(handler))
}

// ReportBroken logs a component failure that the caller recovers from,
// `id` is one of the package's report_* constants.
func ReportBroken(id string, params ...any) {
	slog.Error("broken component", append([]any{"id", id}, params...)...)
}

func ReportWarning(id string, params ...any) {
	slog.Warn("warning", append([]any{"id", id}, params...)...)
}
