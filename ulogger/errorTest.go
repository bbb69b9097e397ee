package ulogger

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Logf(format string, args ...any)
}

type tHelper = interface {
	Helper()
}

// ErrorTestLogger forwards warnings and errors to the test log and remembers them,
// so tests can assert that a best-effort failure was reported.
type ErrorTestLogger struct {
	t        TestingT
	mu       sync.Mutex
	errors   []string
	shutdown atomic.Bool // Prevents logging after test cleanup
}

func NewErrorTestLogger(t TestingT) *ErrorTestLogger {
	return &ErrorTestLogger{t: t}
}

// Shutdown marks the logger as shutdown, preventing further access to testing.T
func (l *ErrorTestLogger) Shutdown() {
	l.shutdown.Store(true)
}

// Errors returns the formatted messages passed to Errorf and Fatalf.
func (l *ErrorTestLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.errors...)
}

func (l *ErrorTestLogger) LogLevel() int {
	return 0
}

func (l *ErrorTestLogger) SetLogLevel(level string) {}

func (l *ErrorTestLogger) New(service string, options ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Duplicate(options ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Debugf(format string, args ...interface{}) {}

func (l *ErrorTestLogger) Infof(format string, args ...interface{}) {}

func (l *ErrorTestLogger) Warnf(format string, args ...interface{}) {
	l.log("WARN_LEVEL", format, args...)
}

func (l *ErrorTestLogger) Errorf(format string, args ...interface{}) {
	l.record(format, args...)
	l.log("ERR_LEVEL", format, args...)
}

func (l *ErrorTestLogger) Fatalf(format string, args ...interface{}) {
	l.record(format, args...)
	l.log("FATAL_LEVEL", format, args...)
}

func (l *ErrorTestLogger) record(format string, args ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *ErrorTestLogger) log(level, format string, args ...interface{}) {
	// Don't access testing.T if logger is shutdown (test is cleaning up)
	if l.shutdown.Load() {
		return
	}

	if h, ok := l.t.(tHelper); ok {
		h.Helper()
	}

	l.t.Logf(level+" "+format, args...)
}
