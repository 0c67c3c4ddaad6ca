package log

import "sync/atomic"

// defaultLogger backs the package level functions.  The IPC reader, the bridge and the UI all log through it from
// their own goroutines.
var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger replaces the logger used by the package level functions.  Passing nil silences them.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// DefaultLogger returns the current default logger, or nil when none is set
func DefaultLogger() *Logger {
	return defaultLogger.Load()
}

// withDefault runs fn against the default logger if there is one
func withDefault(fn func(*Logger)) {
	if logger := defaultLogger.Load(); logger != nil {
		fn(logger)
	}
}

func Debug(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Debug(msg, args...) })
}

func Info(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Info(msg, args...) })
}

func Warn(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Warn(msg, args...) })
}

func Error(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Error(msg, args...) })
}

// Trace logs through the default logger's fake trace level.  See (*Logger).Trace.
func Trace(msg string, args ...any) {
	withDefault(func(l *Logger) { l.Trace(msg, args...) })
}

// TraceEnabled reports whether Trace would write anything.  Hot paths check it before building expensive arguments.
func TraceEnabled() bool {
	logger := defaultLogger.Load()
	return logger != nil && logger.traceEnabled
}
