// Package logger builds the zerolog logger shared by every component.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // Human-readable console output instead of JSON
	File   string // Optional rotating log file; empty disables file output
	MaxAge int    // Days to keep rotated files
}

// New creates a configured logger.
// Console output always goes to stderr; when File is set the same events are
// also written as JSON lines to a lumberjack-rotated file.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = os.Stderr
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	out := console
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(console, newRotatingFile(cfg))
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

func newRotatingFile(cfg Config) io.Writer {
	_ = os.MkdirAll(filepath.Dir(cfg.File), 0755)

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 14
	}

	return &lumberjack.Logger{
		Filename:  cfg.File,
		MaxSize:   100, // MB
		MaxAge:    maxAge,
		Compress:  true,
		LocalTime: true,
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
