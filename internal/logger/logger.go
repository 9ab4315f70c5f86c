package logger

import (
	"strings"
	"sync"
)

// Log levels accepted in config (log.level).
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Encodings accepted in config (log.format).
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the level and line encoding of the process logger.
type Config struct {
	Level  string
	Format string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the configuration;
// later calls return the same instance whatever they pass.
func Get(cfg Config) *Logger {
	once.Do(func() {
		globalLogger = New(cfg, nil)
	})
	return globalLogger
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
