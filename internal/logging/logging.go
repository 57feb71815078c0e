package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// ParseLevel converts a LOG_LEVEL value into a LogLevel. Unknown values map
// to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func initLevel() {
	levelOnce.Do(func() {
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			currentLevel = LevelDebug
			return
		}
		currentLevel = ParseLevel(os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// SetLevel overrides the level read from the environment.
func SetLevel(l LogLevel) {
	initLevel()
	currentLevel = l
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(level LogLevel, tag, prefix, format string, args ...interface{}) {
	if GetLevel() > level {
		return
	}
	log.Printf("["+tag+"] "+prefix+format, args...)
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "DEBUG", "", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logAt(LevelInfo, "INFO", "", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "WARN", "", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logAt(LevelError, "ERROR", "", format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through to log.Printf for messages that should always print
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Logger prefixes every message with a component tag, e.g. "[audio] ".
type Logger struct {
	prefix string
}

// With returns a Logger whose messages carry the given component name.
func With(component string) *Logger {
	if component == "" {
		return &Logger{}
	}
	return &Logger{prefix: "[" + component + "] "}
}

// With returns a child logger with an additional component segment.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return With(component)
	}
	if component == "" {
		return l
	}
	return &Logger{prefix: l.prefix + "[" + component + "] "}
}

// Prefix returns the rendered prefix.
func (l *Logger) Prefix() string {
	if l == nil {
		return ""
	}
	return l.prefix
}

// Debug logs at debug level with the logger prefix.
func (l *Logger) Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "DEBUG", l.Prefix(), format, args...)
}

// Info logs at info level with the logger prefix.
func (l *Logger) Info(format string, args ...interface{}) {
	logAt(LevelInfo, "INFO", l.Prefix(), format, args...)
}

// Warn logs at warn level with the logger prefix.
func (l *Logger) Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "WARN", l.Prefix(), format, args...)
}

// Error logs at error level with the logger prefix.
func (l *Logger) Error(format string, args ...interface{}) {
	logAt(LevelError, "ERROR", l.Prefix(), format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
