package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns a logger appender that logs to the underlying `testing.TB`
// object. Writing logs with `tb.Log` associates the log line with the Golang "Test*" function
// that produced it, which matters for tests running in parallel.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	const maxLength = 10
	toPrint := make([]string, 0, maxLength)
	toPrint = append(toPrint, entry.Time.Format(DefaultTimeFormatStr))

	toPrint = append(toPrint, strings.ToUpper(entry.Level.String()))
	toPrint = append(toPrint, entry.LoggerName)
	if entry.Caller.Defined {
		toPrint = append(toPrint, entry.Caller.TrimmedPath())
	}
	toPrint = append(toPrint, entry.Message)
	if len(fields) == 0 {
		tapp.tb.Log(strings.Join(toPrint, "\t"))
		return nil
	}

	// Use zap's json encoder which will encode our slice of fields in-order. Call it with an
	// empty Entry object such that only the fields become "map-ified".
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		tapp.tb.Log(strings.Join(toPrint, "\t"))
		return err
	}
	toPrint = append(toPrint, string(buf.Bytes()))
	tapp.tb.Log(strings.Join(toPrint, "\t"))
	return nil
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
