package main

import (
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// newLogger builds the process logger. Format "pretty" renders through
// charmbracelet/log, anything else is slog's text handler.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	if strings.EqualFold(format, "pretty") {
		lvl, err := charmlog.ParseLevel(strings.ToLower(level))
		if err != nil {
			lvl = charmlog.InfoLevel
		}
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           lvl,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          "popcorn",
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
