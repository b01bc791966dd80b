package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the global JSON logger. The level comes from
// LOG_LEVEL (debug/info/warn/error, default info) so staging can run
// chatty without a rebuild.
func Setup() {
	slog.SetDefault(slog.New(StdoutHandler()).With("service", "coach-backend"))
}

// StdoutHandler builds the JSON stdout sink at the configured level;
// the server reuses it when it rebuilds the logger with the postgres
// sink attached.
func StdoutHandler() slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	})
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
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
