package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log entry
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for general information
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
	// FATAL level for fatal errors that cause program exit
	FATAL
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger represents a leveled logger with an optional field prefix
type Logger struct {
	level      Level
	logger     *log.Logger
	writer     io.Writer
	timeFormat string
	prefix     string
	caller     bool
	exit       func(int)
}

// Config holds the configuration for the logger
type Config struct {
	Level        Level
	Output       io.Writer
	TimeFormat   string
	EnableCaller bool
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = "2006-01-02 15:04:05"
	}

	return &Logger{
		level:      config.Level,
		writer:     config.Output,
		logger:     log.New(config.Output, "", 0),
		timeFormat: config.TimeFormat,
		caller:     config.EnableCaller,
		exit:       os.Exit,
	}
}

// NewDefault creates a logger with default configuration
func NewDefault() *Logger {
	return New(Config{
		Level:      INFO,
		Output:     os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) log(level Level, message string, args ...interface{}) {
	if level < l.level {
		return
	}

	var caller string
	if l.caller {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			caller = fmt.Sprintf("%s:%d ", filepath.Base(file), line)
		}
	}

	formattedMessage := message
	if len(args) > 0 {
		formattedMessage = fmt.Sprintf(message, args...)
	}

	l.logger.Printf("[%s] %s %s%s%s",
		time.Now().Format(l.timeFormat), level.String(), caller, l.prefix, formattedMessage)

	if level == FATAL {
		l.exit(1)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(DEBUG, message, args...)
}

// Info logs an info message
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(INFO, message, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(WARN, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(ERROR, message, args...)
}

// Fatal logs a fatal message and exits the program
func (l *Logger) Fatal(message string, args ...interface{}) {
	l.log(FATAL, message, args...)
}

// WithCaller enables caller information in log entries
func (l *Logger) WithCaller() *Logger {
	c := *l
	c.caller = true
	return &c
}

// WithFields returns a logger that prefixes every entry with key=value pairs,
// sorted by key so output is stable.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(l.prefix)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v ", k, fields[k])
	}

	c := *l
	c.prefix = b.String()
	return &c
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewDefault()
)

// SetDefault sets the default logger
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the package level logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Debug logs a debug message using the default logger
func Debug(message string, args ...interface{}) {
	Default().log(DEBUG, message, args...)
}

// Info logs an info message using the default logger
func Info(message string, args ...interface{}) {
	Default().log(INFO, message, args...)
}

// Warn logs a warning message using the default logger
func Warn(message string, args ...interface{}) {
	Default().log(WARN, message, args...)
}

// Error logs an error message using the default logger
func Error(message string, args ...interface{}) {
	Default().log(ERROR, message, args...)
}

// Fatal logs a fatal message using the default logger
func Fatal(message string, args ...interface{}) {
	Default().log(FATAL, message, args...)
}

// WithFields returns the default logger with a field prefix
func WithFields(fields map[string]interface{}) *Logger {
	return Default().WithFields(fields)
}
