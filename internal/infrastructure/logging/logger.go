package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger with the aquarium default fields.
//
// Thread Safety: all methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New creates a logger for service from cfg. Output "file" appends to
// cfg.File; anything else writes to stdout or stderr.
//
// Every entry carries service and version attributes.
func New(cfg config.LoggingConfig, service, version string) (*Logger, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer
	)

	switch strings.ToLower(cfg.Output) {
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	}

	l := NewWithWriter(cfg, service, version, out)
	l.closer = closer
	return l, nil
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(cfg config.LoggingConfig, service, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps debug, info, warn and error to slog levels; anything
// else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a logger with additional default attributes.
//
//	pumpLog := logger.With("component", "pump")
//	pumpLog.Info("started") // includes component=pump
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), closer: l.closer}
}

// Close releases the log file, if any. Loggers derived with With share it.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Default creates a JSON info logger on stdout for use before the
// configuration is loaded.
func Default(service string) *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, service, "dev", os.Stdout)
}
