package logging

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Level is an enum of log levels. Its value can be `DEBUG`, `INFO`, `WARN` or `ERROR`.
type Level int

const (
	// DEBUG log level.
	DEBUG Level = iota - 1
	// INFO log level.
	INFO
	// WARN log level.
	WARN
	// ERROR log level.
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	}

	panic(errors.Errorf("unreachable: %d", level))
}

// AsZap converts the Level to a `zapcore.Level`.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}

	panic(errors.Errorf("unreachable: %d", level))
}

// LevelFromString parses an input string to a log level. The string must be one of `debug`,
// `info`, `warn` or `error`. The parsing is case-insensitive.
func LevelFromString(inp string) (Level, error) {
	switch strings.ToLower(inp) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}

	return DEBUG, errors.Errorf("unknown log level: %q", inp)
}

// AtomicLevel is a level that can be concurrently accessed.
type AtomicLevel struct {
	val *atomic.Int32
}

// NewAtomicLevelAt creates a new AtomicLevel at the input `initLevel`.
func NewAtomicLevelAt(initLevel Level) AtomicLevel {
	ret := AtomicLevel{
		val: &atomic.Int32{},
	}
	ret.Set(initLevel)
	return ret
}

// Set changes the level.
func (level AtomicLevel) Set(newLevel Level) {
	level.val.Store(int32(newLevel))
}

// Get returns the level.
func (level AtomicLevel) Get() Level {
	return Level(level.val.Load())
}
