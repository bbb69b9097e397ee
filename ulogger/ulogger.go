// Package ulogger is the logging interface used across the module, with a
// zerolog implementation and no-op and error-capturing loggers for tests.
package ulogger

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
	colorBlue   = 34
	colorBold   = 1
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// New returns a zerolog logger for service, or a TestLogger when the logger
// type is "none".
func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	if opts.loggerType == "none" {
		return TestLogger{}
	}

	return NewZeroLogger(service, options...)
}
