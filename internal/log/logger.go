package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger provides an interface into the underlying logging system for muxbridge.
type Logger struct {
	logger       *slog.Logger
	closer       io.Closer
	traceEnabled bool
}

// Config contains logging information used to set up the logging framework
type Config struct {
	// Log Level.  One of: trace, debug, info, warn, error
	Level string
	// Path to the file to log into.  When empty, logs go to stderr.
	FilePath string
}

// New creates a JSON logger writing to the configured file, or to stderr when no file path is set.
func New(config Config) (*Logger, error) {
	if config.FilePath == "" {
		return NewWithWriter(os.Stderr, config.Level), nil
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	logger := NewWithWriter(file, config.Level)
	logger.closer = file
	return logger, nil
}

// NewWithWriter creates a JSON logger writing to w.  The caller owns w.
func NewWithWriter(w io.Writer, level string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	return &Logger{
		logger:       slog.New(slog.NewJSONHandler(w, opts)),
		traceEnabled: strings.EqualFold(level, "trace"),
	}
}

// Close the log file, if the logger owns one
func (l *Logger) Close() {
	if l.closer == nil {
		return
	}
	if err := l.closer.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error closing logger: %v\n", err)
	}
}

// With returns a logger that adds the given attributes to every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger:       l.logger.With(args...),
		traceEnabled: l.traceEnabled,
	}
}

// Debug logs a message a debug Level
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs a message at info Level
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a message at warn Level
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs a message at error Level.
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Trace logs at debug level when trace logging is enabled
func (l *Logger) Trace(msg string, args ...any) {
	if l.traceEnabled {
		l.logger.Debug("TRACE: "+msg, args...)
	}
}

// parseLogLevel is a helper to convert a string log Level into the slog version.  Defaults to info if a matching log
// Level cannot be found.
func parseLogLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "trace":
		return slog.LevelDebug // Trace level is handled by this log package instead of slog
	default:
		return slog.LevelInfo
	}
}
