package logger

import (
	"log/slog"
	"os"

	"github.com/spacepoints-ledger/internal/config"
)

// NewLogger builds the process-wide structured JSON logger. At debug
// level the handler also attaches source locations, so a misbehaving
// settlement run can be traced back to its call sites.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	logger := slog.New(handler)

	logger.Info("Logger initialized", "level", level.String())
	return logger
}

// parseLevel maps the configured level name onto a slog level, falling
// back to info for anything unrecognized
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
