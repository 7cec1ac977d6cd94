package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface for gyrosync components.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named `<parent>.<subname>` that shares the parent's appenders.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	AddAppender(appender Appender)
	Sync() error
}

// impl writes every entry to all of its appenders. Subloggers share the appender slice but
// carry their own level.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

var errUnpairedKey = errors.New("unpaired log key")

// emitSkip is the number of frames between runtime.Caller in emit and the code that called a
// Logger method.
const emitSkip = 2

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) { imp.level.Set(level) }

func (imp *impl) GetLevel() Level { return imp.level.Get() }

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{name, NewAtomicLevelAt(imp.level.Get()), imp.inUTC, imp.appenders}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get()
}

// emit must be called directly from a Logger method so the recorded caller is the log site.
func (imp *impl) emit(level Level, msg string, fields []zapcore.Field) {
	now := time.Now()
	if imp.inUTC {
		now = now.UTC()
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       now,
		LoggerName: imp.name,
		Message:    msg,
		Caller:     zapcore.NewEntryCaller(runtime.Caller(emitSkip)),
	}
	if entry.Caller.Defined {
		if fn := runtime.FuncForPC(entry.Caller.PC); fn != nil {
			entry.Caller.Function = fn.Name()
		}
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// pairFields turns alternating keys and values into fields. A trailing key without a value is
// kept with an error so it is not silently lost.
func pairFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, msg, pairFields(keysAndValues))
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, msg, pairFields(keysAndValues))
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, msg, pairFields(keysAndValues))
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, msg, pairFields(keysAndValues))
	}
}
