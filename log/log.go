// Package log is a thin wrapper around zerolog exposing the leveled and
// key-value ("w" suffixed) helpers used across the service.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelError

	// panicOnInvalidChars makes any log line with invalid UTF-8 panic, so
	// tests catch raw bytes being logged without hex encoding.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"

	// logTestWriter is used by the benchmarks and tests to discard output.
	logTestWriter io.Writer
)

const logTestWriterName = "log_test_writer"

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

type invalidCharChecker struct{}

func (*invalidCharChecker) Write(p []byte) (int, error) {
	// zerolog escapes invalid UTF-8 as \ufffd inside the JSON string
	if !utf8.Valid(p) || bytes.Contains(p, []byte(`\ufffd`)) {
		panic(fmt.Sprintf("log line contains invalid characters: %q", p))
	}
	return len(p), nil
}

// errorLevelWriter only forwards warn and higher levels to its writer.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// Init configures the global logger. Level is one of debug, info, warn or
// error. Output is stdout, stderr or a file path. If errorOutput is not nil,
// warnings and errors are duplicated there.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot create log output: %v", err))
		}
		out = f
	}
	outputs := []io.Writer{zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
	}}
	if errorOutput != nil {
		outputs = append(outputs, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}})
	}
	if panicOnInvalidChars {
		outputs = append(outputs, &invalidCharChecker{})
	}

	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}
	log = zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		With().Timestamp().CallerWithSkipFrameCount(3).Logger()

	switch level {
	case LogLevelDebug:
		log = log.Level(zerolog.DebugLevel)
	case LogLevelInfo:
		log = log.Level(zerolog.InfoLevel)
	case LogLevelWarn:
		log = log.Level(zerolog.WarnLevel)
	case LogLevelError:
		log = log.Level(zerolog.ErrorLevel)
	default:
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	logLevel = level
}

// Level returns the current log level.
func Level() string {
	return logLevel
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

func Debug(args ...any) { log.Debug().Msg(fmt.Sprint(args...)) }
func Info(args ...any)  { log.Info().Msg(fmt.Sprint(args...)) }
func Warn(args ...any)  { log.Warn().Msg(fmt.Sprint(args...)) }
func Error(args ...any) { log.Error().Msg(fmt.Sprint(args...)) }

func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...))
}

func Debugf(template string, args ...any) { log.Debug().Msgf(template, args...) }
func Infof(template string, args ...any)  { log.Info().Msgf(template, args...) }
func Warnf(template string, args ...any)  { log.Warn().Msgf(template, args...) }
func Errorf(template string, args ...any) { log.Error().Msgf(template, args...) }

func Fatalf(template string, args ...any) {
	log.Fatal().Msgf(template, args...)
}

// Debugw logs a message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

// Infow logs a message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

// Warnw logs a message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw logs a message with the error and key-value pairs.
func Errorw(err error, msg string, keyvalues ...any) {
	log.Error().Err(err).Fields(keyvalues).Msg(msg)
}
