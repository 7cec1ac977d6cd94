package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender writes console-encoded log lines to an `io.Writer`.
type ConsoleAppender struct {
	mu      sync.Mutex
	encoder zapcore.Encoder
	writer  io.Writer
}

// NewWriterAppender creates a console appender that writes to the given writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{
		encoder: zapcore.NewConsoleEncoder(NewEncoderConfig()),
		writer:  writer,
	}
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return NewWriterAppender(os.Stdout)
}

// Write outputs the log entry to the underlying writer.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = appender.writer.Write(buf.Bytes())
	return err
}

// Sync flushes the writer when it supports it.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok && appender.writer != os.Stdout {
		return syncer.Sync()
	}
	return nil
}
