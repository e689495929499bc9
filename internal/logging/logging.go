package logging

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// DebugLevel for debug messages
	DebugLevel LogLevel = "debug"
	// InfoLevel for informational messages
	InfoLevel LogLevel = "info"
	// WarnLevel for warning messages
	WarnLevel LogLevel = "warn"
	// ErrorLevel for error messages
	ErrorLevel LogLevel = "error"
)

var charmLevels = map[LogLevel]log.Level{
	DebugLevel: log.DebugLevel,
	InfoLevel:  log.InfoLevel,
	WarnLevel:  log.WarnLevel,
	ErrorLevel: log.ErrorLevel,
}

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs logs as JSON
	JSONFormat Format = "json"
	// HumanFormat outputs logs in human-readable format
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // Optional, defaults to stderr
}

// ParseLevel maps a config string onto a LogLevel, falling back to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case DebugLevel:
		return DebugLevel
	case WarnLevel, "warning":
		return WarnLevel
	case ErrorLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides structured logging
type Logger struct {
	config Config
	writer io.Writer
	base   *log.Logger
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}

	level, ok := charmLevels[config.Level]
	if !ok {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	if config.Format == JSONFormat {
		formatter = log.JSONFormatter
	}

	return &Logger{
		config: config,
		writer: writer,
		base: log.NewWithOptions(writer, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
			Formatter:       formatter,
		}),
	}
}

// NewDiscardLogger returns a logger that drops everything. Used in tests.
func NewDiscardLogger() *Logger {
	return NewLogger(Config{Level: ErrorLevel, Output: io.Discard})
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{
		config: l.config,
		writer: l.writer,
		base:   l.base.With(keyvals(fields)...),
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return charmLevels[level] >= l.base.GetLevel()
}

// keyvals flattens fields in key order so output is stable.
func keyvals(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	l.base.Log(charmLevels[level], message, keyvals(fields)...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}
