// Package logger installs a colored console handler as the slog default and
// exposes thin level helpers used across the server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

const LevelFatal slog.Level = 12

type consoleHandler struct {
	mu     sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
	level  slog.Level
}

func newConsoleHandler(w io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{writer: w, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	case LevelFatal:
		level = color.HiRedString("FATAL")
	}

	line := fmt.Sprintf(
		"%s | %-5s | %s",
		color.GreenString(r.Time.Format("2006-01-02T15:04:05")),
		level,
		r.Message,
	)
	for _, attr := range h.attrs {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
	}
	r.Attrs(func(attr slog.Attr) bool {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
		return true
	})
	line += "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write([]byte(line))
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{writer: h.writer, attrs: merged, level: h.level}
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Init installs the console handler as the slog default.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(newConsoleHandler(os.Stdout, level)))
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }

func DebugF(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }

func Info(msg string, args ...any) { slog.Info(msg, args...) }

func InfoF(format string, v ...any) { slog.Info(fmt.Sprintf(format, v...)) }

func Warn(msg string, args ...any) { slog.Warn(msg, args...) }

func WarnF(format string, v ...any) { slog.Warn(fmt.Sprintf(format, v...)) }

func Error(msg string, args ...any) { slog.Error(msg, args...) }

func ErrorF(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// Fatal logs at the fatal level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

func FatalF(format string, v ...any) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}
