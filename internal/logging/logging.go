package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
)

// New builds the service-wide logger. Level names accepted: debug, info,
// warn, error (defaults to info).
func New(level string) *slog.Logger {
	return slog.New(NewTintHandler(os.Stderr, parseLevel(level)))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// TintHandler is a compact colored slog handler for terminal output.
type TintHandler struct {
	l     *log.Logger
	level slog.Level
	attrs []slog.Attr
}

func NewTintHandler(out io.Writer, level slog.Level) *TintHandler {
	return &TintHandler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

func (h *TintHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TintHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.CyanString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	var b strings.Builder
	for _, a := range h.attrs {
		fmt.Fprintf(&b, "%s=%v ", color.GreenString(a.Key), a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "%s=%v ", color.GreenString(a.Key), a.Value.Any())
		return true
	})

	h.l.Println(r.Time.Format("15:04:05.000"), level, r.Message, strings.TrimSpace(b.String()))
	return nil
}

func (h *TintHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *TintHandler) WithGroup(_ string) slog.Handler {
	return h
}
