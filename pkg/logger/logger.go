package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var (
	root         hclog.Logger
	currentLevel LogLevel
	mu           sync.RWMutex
)

func init() {
	currentLevel = levelFromEnv()
	root = newLogger(os.Stdout, currentLevel)
}

func levelFromEnv() LogLevel {
	lvl := os.Getenv("SHIM_LOG_LEVEL")
	if lvl == "" {
		return DEBUG // Default level
	}
	return ParseLevel(lvl)
}

// ParseLevel converts a level name to a LogLevel, defaulting to DEBUG for unknown names.
func ParseLevel(lvl string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return DEBUG
	}
}

func (l LogLevel) String() string {
	return l.hclogLevel().String()
}

func (l LogLevel) hclogLevel() hclog.Level {
	switch l {
	case TRACE:
		return hclog.Trace
	case DEBUG:
		return hclog.Debug
	case INFO:
		return hclog.Info
	case WARN:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func newLogger(w io.Writer, level LogLevel) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "shim",
		Output: w,
		Level:  level.hclogLevel(),
	})
}

// SetOutput redirects all subsequent log output, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = newLogger(w, currentLevel)
}

// SetLevel changes the active level at runtime.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	root.SetLevel(level.hclogLevel())
}

// Named returns a sub-logger whose entries carry the given name.
func Named(name string) hclog.Logger {
	return get().Named(name)
}

// Get returns the underlying hclog logger, for libraries that accept one.
func Get() hclog.Logger {
	return get()
}

func get() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Level check functions
func IsTraceEnabled() bool {
	return GetCurrentLevel() <= TRACE
}

func IsDebugEnabled() bool {
	return GetCurrentLevel() <= DEBUG
}

func IsInfoEnabled() bool {
	return GetCurrentLevel() <= INFO
}

func IsWarnEnabled() bool {
	return GetCurrentLevel() <= WARN
}

func IsErrorEnabled() bool {
	return GetCurrentLevel() <= ERROR
}

// Trace level logging
func Tracef(format string, v ...interface{}) {
	if IsTraceEnabled() {
		get().Trace(fmt.Sprintf(format, v...))
	}
}

func Traceln(msg string) {
	if IsTraceEnabled() {
		get().Trace(msg)
	}
}

// Debug level logging
func Debugf(format string, v ...interface{}) {
	if IsDebugEnabled() {
		get().Debug(fmt.Sprintf(format, v...))
	}
}

func Debugln(msg string) {
	if IsDebugEnabled() {
		get().Debug(msg)
	}
}

// Info level logging
func Infof(format string, v ...interface{}) {
	if IsInfoEnabled() {
		get().Info(fmt.Sprintf(format, v...))
	}
}

func Infoln(msg string) {
	if IsInfoEnabled() {
		get().Info(msg)
	}
}

// Warn level logging
func Warnf(format string, v ...interface{}) {
	if IsWarnEnabled() {
		get().Warn(fmt.Sprintf(format, v...))
	}
}

func Warnln(msg string) {
	if IsWarnEnabled() {
		get().Warn(msg)
	}
}

// Error level logging
func Errorf(format string, v ...interface{}) {
	if IsErrorEnabled() {
		get().Error(fmt.Sprintf(format, v...))
	}
}

func Errorln(msg string) {
	if IsErrorEnabled() {
		get().Error(msg)
	}
}

// GetCurrentLevel returns the current log level
func GetCurrentLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}
