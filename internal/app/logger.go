package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
)

// NewLogger builds the process logger on stderr and installs it as the slog
// default. Every record carries the app name so worker, scheduler and HTTP
// output can be told apart from the cron library's own lines.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	text := strings.EqualFold(cfg.Format, "text")
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   text,
		ReplaceAttr: shortDurations,
	}

	var h slog.Handler
	if text {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With(slog.String("app", "quiz-master"))
}

// shortDurations renders durations as "1.5s" instead of nanoseconds so job
// and request timings stay readable in JSON output.
func shortDurations(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
