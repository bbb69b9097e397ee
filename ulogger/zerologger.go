package ulogger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var zerologLevels = map[string]zerolog.Level{
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
	"PANIC": zerolog.PanicLevel,
}

var gocoreLevels = map[zerolog.Level]int{
	zerolog.DebugLevel: int(gocore.DEBUG),
	zerolog.InfoLevel:  int(gocore.INFO),
	zerolog.WarnLevel:  int(gocore.WARN),
	zerolog.ErrorLevel: int(gocore.ERROR),
	zerolog.FatalLevel: int(gocore.FATAL),
}

var levelColors = map[string]int{
	"debug": colorBlue,
	"info":  colorGreen,
	"warn":  colorYellow,
	"error": colorRed,
	"fatal": colorRed,
	"panic": colorRed,
}

// ZeroLogger is the zerolog backed Logger. Pretty loggers write aligned console
// lines, the others JSON lines carrying a service field.
type ZeroLogger struct {
	zerolog.Logger
	service string
	w       io.Writer
	pretty  bool
}

func NewZeroLogger(service string, options ...Option) *ZeroLogger {
	if service == "" {
		service = "nomadledger"
	}

	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	var ctx zerolog.Context
	if opts.pretty {
		ctx = zerolog.New(consoleWriter(opts.writer, service)).With()
	} else {
		ctx = zerolog.New(opts.writer).With().Str("service", service)
	}

	z := &ZeroLogger{
		Logger:  ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).Timestamp().Logger(),
		service: service,
		w:       opts.writer,
		pretty:  opts.pretty,
	}

	z.SetLogLevel(opts.logLevel)

	return z
}

func consoleWriter(w io.Writer, service string) zerolog.ConsoleWriter {
	noColor := true
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		noColor = os.Getenv("NO_COLOR") != ""
	}

	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			level, _ := i.(string)
			return "| " + colorize(fmt.Sprintf("%-6s", strings.ToUpper(level)), levelColors[level], noColor) + "|"
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %-10s| %v", service, i)
		},
		FormatCaller: func(i interface{}) string {
			caller, _ := i.(string)
			if caller == "" {
				return ""
			}

			return colorize(fmt.Sprintf("%-28s", shortCaller(caller)), colorBold, noColor)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
	}
}

// shortCaller keeps the file name and its parent directory.
func shortCaller(caller string) string {
	parts := strings.Split(caller, "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}

	return strings.Join(parts, "/")
}

func (z *ZeroLogger) New(service string, options ...Option) Logger {
	// children inherit the parent's output unless told otherwise
	inherited := []Option{
		WithWriter(z.w),
		WithLevel(strings.ToUpper(z.Logger.GetLevel().String())),
		WithPretty(z.pretty),
	}

	return NewZeroLogger(service, append(inherited, options...)...)
}

func (z *ZeroLogger) Duplicate(options ...Option) Logger {
	return z.New(z.service, options...)
}

// SetLogLevel accepts gocore level names in any case. Unknown names select INFO.
func (z *ZeroLogger) SetLogLevel(logLevel string) {
	level, ok := zerologLevels[strings.ToUpper(logLevel)]
	if !ok {
		level = zerolog.InfoLevel
	}

	z.Logger = z.Logger.Level(level)
}

func (z *ZeroLogger) LogLevel() int {
	if level, ok := gocoreLevels[z.Logger.GetLevel()]; ok {
		return level
	}

	return int(gocore.INFO)
}

func (z *ZeroLogger) Debugf(format string, args ...interface{}) {
	z.Logger.Debug().Msgf(format, args...)
}

func (z *ZeroLogger) Infof(format string, args ...interface{}) {
	z.Logger.Info().Msgf(format, args...)
}

func (z *ZeroLogger) Warnf(format string, args ...interface{}) {
	z.Logger.Warn().Msgf(format, args...)
}

func (z *ZeroLogger) Errorf(format string, args ...interface{}) {
	z.Logger.Error().Msgf(format, args...)
}

func (z *ZeroLogger) Fatalf(format string, args ...interface{}) {
	z.Logger.Fatal().Msgf(format, args...)
}

func colorize(s string, c int, disabled bool) string {
	if disabled || c == 0 {
		return s
	}

	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
