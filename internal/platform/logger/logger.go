package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to stdout. Level defaults to
// info; set PADRON_LOG_LEVEL=debug for local troubleshooting.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("PADRON_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
