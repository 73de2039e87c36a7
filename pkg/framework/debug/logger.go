// Package debug provides leveled logging for the hosting core. Logging
// happens only on main-thread lifecycle paths; nothing in this package is
// called from the audio worker's hot path.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
	// LogLevelOff disables all logging.
	LogLevelOff
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger provides leveled, prefixed logging.
type Logger struct {
	mu          sync.Mutex
	output      io.Writer
	level       LogLevel
	prefix      string
	includeTime bool
}

var defaultLogger = New(os.Stderr, "rtfx")

// New creates a new logger instance.
func New(output io.Writer, prefix string) *Logger {
	return &Logger{
		output:      output,
		prefix:      prefix,
		level:       LogLevelInfo,
		includeTime: true,
	}
}

// NewFileLogger creates a logger that writes to a file.
func NewFileLogger(filename, prefix string) (*Logger, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(file, prefix), nil
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetIncludeTime controls whether messages carry a timestamp.
func (l *Logger) SetIncludeTime(include bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.includeTime = include
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var sb strings.Builder
	if l.includeTime {
		sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000 "))
	}
	fmt.Fprintf(&sb, "[%s] ", level.String())
	if l.prefix != "" {
		fmt.Fprintf(&sb, "[%s] ", l.prefix)
	}

	msg := fmt.Sprintf(format, args...)
	sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		sb.WriteString("\n")
	}

	l.output.Write([]byte(sb.String()))
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// SetOutput sets the output destination for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}
