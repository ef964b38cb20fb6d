// Package logger configures the global structured logger and exposes
// per-component child loggers used across the bot.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	levelVar slog.LevelVar

	// L is the base logger.
	L *slog.Logger

	// TG logs Telegram transport events.
	TG *slog.Logger
	// DB logs database events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// ENG logs conversation engine transitions.
	ENG *slog.Logger
	// FAN logs notification fan-out activity.
	FAN *slog.Logger
	// HTTP logs ops HTTP server events.
	HTTP *slog.Logger
)

// Init configures the global structured logger. It may be called only once;
// subsequent calls are no-ops.
func Init(level, format string) {
	initOnce.Do(func() {
		levelVar.Set(parseLevel(level))

		opts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		if strings.EqualFold(format, "json") {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
}

func wireComponents() {
	TG = L.With("component", "tg")
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	ENG = L.With("component", "engine")
	FAN = L.With("component", "fanout")
	HTTP = L.With("component", "http")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// RoundMS rounds a duration to whole milliseconds for log output.
func RoundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

func init() {
	// Sensible default until Init runs; tests rely on this.
	L = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &levelVar}))
	wireComponents()
}
