package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"codeberg.org/mutker/thermloop/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerologger{zl: zerolog.New(os.Stdout).With().Timestamp().Logger()}

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ParseLevel maps a configured level name onto a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch name {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warning", "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, name)
	}
}

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

type zerologger struct {
	zl zerolog.Logger
}

// Init initializes the process-wide logger
func Init(level LogLevel, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerologger{zl: zerolog.New(output).With().Timestamp().Logger()}
	SetLogLevel(level)
}

// New returns a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level LogLevel) Logger {
	return zerologger{zl: zerolog.New(w).Level(zerolog.Level(level)).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return zerologger{zl: zerolog.Nop()}
}

// Default returns the process-wide logger set up by Init.
func Default() Logger {
	return log
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

func (l zerologger) Debug() *LogEvent {
	return &LogEvent{l.zl.Debug()}
}

func (l zerologger) Info() *LogEvent {
	return &LogEvent{l.zl.Info()}
}

func (l zerologger) Warn() *LogEvent {
	return &LogEvent{l.zl.Warn()}
}

func (l zerologger) Error() *LogEvent {
	return &LogEvent{l.zl.Error()}
}

func (l zerologger) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{l.zl.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

func (l zerologger) With(component string) Logger {
	return zerologger{zl: l.zl.With().Str("component", component).Logger()}
}

// Debug logs a debug message
func Debug() *LogEvent {
	return log.Debug()
}

// Info logs an info message
func Info() *LogEvent {
	return log.Info()
}

// Warn logs a warning message
func Warn() *LogEvent {
	return log.Warn()
}

// Error logs an error message
func Error() *LogEvent {
	return log.Error()
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return log.ErrorWithCode(err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.zl.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return &LogEvent{log.zl.Fatal().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}
