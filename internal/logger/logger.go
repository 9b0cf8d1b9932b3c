// Package logger builds the application's structured loggers.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mrlokans/bookshelf/internal/config"
)

// New creates the root logger from cfg, writing to stderr.
func New(cfg config.Log) *log.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w, with timestamps and caller
// reporting enabled.
func NewWithWriter(w io.Writer, cfg config.Log) *log.Logger {
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
	l.SetLevel(ParseLevel(cfg.Level))
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// With creates a child logger with kv added to every entry.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}
