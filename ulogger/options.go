package ulogger

import (
	"io"
	"os"
)

type Options struct {
	writer     io.Writer
	loggerType string
	logLevel   string
	pretty     bool
}

type Option func(*Options)

func DefaultOptions() *Options {
	return &Options{
		writer:     os.Stdout,
		loggerType: "zerolog",
		logLevel:   "INFO",
		pretty:     true,
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.writer = w
	}
}

// WithLoggerType selects the implementation: "zerolog" (default) or "none".
func WithLoggerType(loggerType string) Option {
	return func(o *Options) {
		o.loggerType = loggerType
	}
}

func WithLevel(level string) Option {
	return func(o *Options) {
		o.logLevel = level
	}
}

// WithPretty toggles the console writer. JSON lines are written when false.
func WithPretty(pretty bool) Option {
	return func(o *Options) {
		o.pretty = pretty
	}
}
