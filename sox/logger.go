// Package sox is the back end's single entry point: it wires irbuild,
// regalloc, the two codegen backends, and the two object writers into the
// GenerateObject/GenerateExecutable operations described by spec.md §6.
package sox

import (
	"log"
	"os"
)

// LogLevel mirrors rush/vm's level-gated logger, trimmed to what a batch
// compiler actually needs: diagnostics either are or aren't interesting
// enough to print (spec.md §7: "Diagnostics are written to the standard
// error stream").
type LogLevel int

const (
	LogNone LogLevel = iota
	LogInfo
	LogDebug
)

// Logger wraps a standard *log.Logger the way rush/vm.VMLogger does, gated
// by a verbosity level instead of a boolean.
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

// NewLogger returns a Logger at the given level, writing to stderr with the
// "[sox] " prefix.
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "[sox] ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) Info(format string, args ...any) {
	if l.level >= LogInfo {
		l.logger.Printf("INFO: "+format, args...)
	}
}

func (l *Logger) Debug(format string, args ...any) {
	if l.level >= LogDebug {
		l.logger.Printf("DEBUG: "+format, args...)
	}
}

func (l *Logger) Warn(format string, args ...any) {
	l.logger.Printf("WARN: "+format, args...)
}

// defaultLogger is consulted by GenerateObject/GenerateExecutable when the
// caller does not supply one via CompileOptions.Logger.
var defaultLogger = NewLogger(LogNone)
