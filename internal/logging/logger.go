package logging

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelDisabled turns off every output when used as the log level.
const LevelDisabled = "disabled"

// Options configures a Logger.
type Options struct {
	// Level is a zap level name, a number (-1 debug .. 2 error), "all" or
	// "verbose" for debug, or "disabled". Empty means info.
	Level string
	// Format is "console" (default) or "json".
	Format  string
	NoColor bool
	// Stdout receives debug and info records; Stderr receives warnings and
	// errors. Both default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Logger provides leveled printf-style logging with redaction support
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
	level zapcore.Level
}

// New creates a console logger writing to the process streams.
func New(debug, noColor bool) *Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	l, err := NewWithOptions(Options{Level: level, NoColor: noColor})
	if err != nil {
		// Only reachable with a bad level, which cannot happen here.
		panic(err)
	}
	return l
}

// NewWithOptions creates a logger from explicit options.
func NewWithOptions(opts Options) (*Logger, error) {
	if strings.EqualFold(strings.TrimSpace(opts.Level), LevelDisabled) {
		return Nop(), nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	encoder := newEncoder(opts)

	// Records up to info go to stdout, warnings and above to stderr.
	lowEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.WarnLevel
	})
	highEnabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), lowEnabler),
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), highEnabler),
	)

	base := zap.New(core)
	return &Logger{sugar: base.Sugar(), base: base, level: level}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{sugar: base.Sugar(), base: base, level: zapcore.FatalLevel + 1}
}

// ParseLevel parses a level name or number. The names "all" and "verbose"
// select debug.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zapcore.InfoLevel, nil
	case "all", "verbose", "notset":
		return zapcore.DebugLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	case "critical":
		return zapcore.ErrorLevel, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		lvl := zapcore.Level(n)
		if lvl < zapcore.DebugLevel || lvl > zapcore.FatalLevel {
			return 0, fmt.Errorf("invalid log level: %s", s)
		}
		return lvl, nil
	}

	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return lvl, nil
}

func newEncoder(opts Options) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	if strings.EqualFold(opts.Format, "json") {
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if !opts.NoColor {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// Named returns a child logger tagged with a component name.
func (l *Logger) Named(name string) *Logger {
	base := l.base.Named(name)
	return &Logger{sugar: base.Sugar(), base: base, level: l.level}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{sugar: sugar, base: sugar.Desugar(), level: l.level}
}

// DebugEnabled reports whether debug records are written.
func (l *Logger) DebugEnabled() bool {
	return l.level <= zapcore.DebugLevel
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// redacted stands in for a hidden value.
const redacted = "[REDACTED]"

// minRedactLen is the shortest value Redact hides.
const minRedactLen = 4

// Secret is a string that formats as [REDACTED] with %s, %v and %#v.
type Secret string

func (Secret) String() string   { return redacted }
func (Secret) GoString() string { return redacted }

// Redact replaces every occurrence of values in s with [REDACTED]. Longer
// values go first so a value containing another is hidden whole. Values
// shorter than four bytes are left alone.
func Redact(s string, values ...string) string {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	for _, v := range sorted {
		if len(v) >= minRedactLen {
			s = strings.ReplaceAll(s, v, redacted)
		}
	}
	return s
}

// RedactError hides values in err's message. The result still unwraps to
// err. err is returned as is when none of the values appear in it.
func RedactError(err error, values ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := Redact(msg, values...)
	if clean == msg {
		return err
	}
	return &redactedError{msg: clean, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
