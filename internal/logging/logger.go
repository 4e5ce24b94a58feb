// Package logging builds the slog logger every crimpy command injects into its components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects the handler, level and outputs of a logger.
type Params struct {
	Level  string
	Format string // "text" or "json"
	// File, when set, receives a rotated copy of the log.
	File string
	// Stdout keeps writing to stdout when File is set.
	Stdout bool
}

// Setup builds a logger from p. The returned closer flushes and closes the log file and
// is a no-op when logging only to stdout.
func Setup(p Params) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	if p.File != "" {
		name := p.File
		if !strings.HasSuffix(name, ".log") {
			name += ".log"
		}
		lj := &lumberjack.Logger{
			Filename: name,
			MaxSize:  50, // megabytes
			Compress: true,
		}
		closer = lj
		out = lj
		if p.Stdout {
			out = io.MultiWriter(os.Stdout, lj)
		}
	}

	return New(out, p.Level, p.Format), closer
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
