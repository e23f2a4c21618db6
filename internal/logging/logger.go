package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

// slogTrace sits below slog.LevelDebug so tint renders it distinctly.
const slogTrace = slog.Level(-8)

const timeFormat = "2006-01-02 15:04:05"

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

var slogLevels = map[LogLevel]slog.Level{
	LevelError: slog.LevelError,
	LevelWarn:  slog.LevelWarn,
	LevelInfo:  slog.LevelInfo,
	LevelDebug: slog.LevelDebug,
	LevelTrace: slogTrace,
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a level name (case-insensitive) to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if levelName == upper {
			return level, true
		}
	}
	return LevelInfo, false
}

// Logger provides leveled, prefixed logging on top of slog.
// Loggers derived with WithPrefix share the level of their parent.
type Logger struct {
	prefix  string
	level   *slog.LevelVar
	base    slog.Handler
	handler slog.Handler
	mu      *sync.RWMutex
	current *LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("TINYFS")

		// Set initial log level from environment
		if level, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			defaultLogger.SetLevel(level)
		}

		// Enable debug logging if FUSE_DEBUG is set
		if os.Getenv("FUSE_DEBUG") != "" {
			defaultLogger.SetLevel(LevelDebug)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given prefix writing to stdout.
func NewLogger(prefix string) *Logger {
	return NewLoggerTo(os.Stdout, prefix)
}

// NewLoggerTo creates a new logger with the given prefix writing to w.
// Colour is only used when w is a terminal.
func NewLoggerTo(w io.Writer, prefix string) *Logger {
	levelVar := new(slog.LevelVar)
	current := LevelInfo
	levelVar.Set(slogLevels[current])

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      levelVar,
		TimeFormat: timeFormat,
		AddSource:  os.Getenv("LOG_SOURCE") != "",
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == slogTrace {
				a.Value = slog.StringValue("TRC")
			}
			return a
		},
	})

	l := &Logger{
		level:   levelVar,
		base:    handler,
		handler: handler,
		mu:      &sync.RWMutex{},
		current: &current,
	}
	return l.WithPrefix(prefix)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.current = level
	l.level.Set(slogLevels[level])
}

// Level returns the current logging level.
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.current
}

// shouldLog determines if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	return l.handler.Enabled(context.Background(), slogLevels[level])
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	// skip runtime.Callers, log and the exported level method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), slogLevels[level], fmt.Sprintf(format, args...), pcs[0])
	if err := l.handler.Handle(context.Background(), r); err != nil {
		// write directly to stderr
		fmt.Fprintf(os.Stderr, "Failed to write log message: %v\n", err)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.shouldLog(level)
}

// WithPrefix creates a new logger tagged with the given component prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	// prefixes replace each other rather than nest
	return &Logger{
		prefix:  prefix,
		level:   l.level,
		base:    l.base,
		handler: l.base.WithAttrs([]slog.Attr{slog.String("component", prefix)}),
		mu:      l.mu,
		current: l.current,
	}
}

// Prefix returns the component prefix of the logger.
func (l *Logger) Prefix() string {
	return l.prefix
}
