package executor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"smarttest/internal/application/port/output"
)

const maxCapturedLines = 200

// captureLogger forwards to the run logger and keeps a copy of every line
// for the test's result.
type captureLogger struct {
	base  output.LoggerPort
	buf   *lineBuffer
	clock func() time.Time
}

type lineBuffer struct {
	mu    sync.Mutex
	lines []string
}

func newCaptureLogger(base output.LoggerPort) *captureLogger {
	return &captureLogger{base: base, buf: &lineBuffer{}, clock: time.Now}
}

func (l *captureLogger) record(level, msg string, args []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", l.clock().Format("15:04:05.000"), level, msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}

	l.buf.mu.Lock()
	defer l.buf.mu.Unlock()
	if len(l.buf.lines) < maxCapturedLines {
		l.buf.lines = append(l.buf.lines, b.String())
	}
}

func (l *captureLogger) Debug(msg string, args ...any) {
	l.base.Debug(msg, args...)
}

func (l *captureLogger) Info(msg string, args ...any) {
	l.record("INFO", msg, args)
	l.base.Info(msg, args...)
}

func (l *captureLogger) Warn(msg string, args ...any) {
	l.record("WARN", msg, args)
	l.base.Warn(msg, args...)
}

func (l *captureLogger) Error(msg string, args ...any) {
	l.record("ERROR", msg, args)
	l.base.Error(msg, args...)
}

func (l *captureLogger) WithField(key string, value any) output.LoggerPort {
	return &captureLogger{base: l.base.WithField(key, value), buf: l.buf, clock: l.clock}
}

func (l *captureLogger) WithFields(fields map[string]any) output.LoggerPort {
	return &captureLogger{base: l.base.WithFields(fields), buf: l.buf, clock: l.clock}
}

func (l *captureLogger) Close() error { return nil }

func (l *captureLogger) Lines() []string {
	l.buf.mu.Lock()
	defer l.buf.mu.Unlock()
	return append([]string(nil), l.buf.lines...)
}
