package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
)

// ServiceName is the "service" attribute on every entry.
const ServiceName = "cotbridge"

// Logger is the process logger. Its Debug/Info/Warn/Error methods satisfy
// the logger interfaces declared by the listener, handler, control and sink
// packages.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to cfg.Output ("stderr", otherwise stdout).
func New(cfg config.LoggingConfig, version string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter builds a Logger writing to w. Format "text" selects
// slog's text handler; anything else is JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With("service", ServiceName, "version", version)}
}

// parseLevel accepts slog's level names plus "warning". Unknown names
// log at info.
func parseLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Component returns a child logger tagged with component=name, the way
// main hands one logger to each subsystem.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With("component", name)}
}

// Default is the JSON info-level stdout logger used until the config file
// has been read.
func Default() *Logger {
	return New(config.LoggingConfig{}, "dev")
}
