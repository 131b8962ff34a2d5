package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/carrier-core/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "carrierd"

// Logger wraps slog.Logger with carrierd default fields.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to the destination named in cfg.Output.
//
// Parameters:
//   - cfg: Logging configuration (level, format, output)
//   - version: Application version for the default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, outputFor(cfg.Output))
}

// NewWithWriter creates a Logger that writes to w, ignoring cfg.Output.
//
// The console uses this to route logs away from the terminal it owns,
// and tests use it to capture output.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

// parseLevel converts a string log level to slog.Level.
// Unrecognised values fall back to info.
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

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	relayLog := logger.With("component", "relay")
//	relayLog.Info("connected") // Includes component=relay
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default creates a logger for use before configuration is loaded.
// It writes JSON at info level to stdout.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
