// Package logger wraps zap for goshard's components.
//
// Every component receives a *Logger and narrows it with WithComponent or
// WithSource; nothing in the module talks to zap directly except tests,
// which build one from an observer core via NewFromCore.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/goshard/internal/config"
)

// Logger is a sugared zap logger carrying goshard context fields.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New builds a Logger from the logging section of the configuration.
//
// Output is a comma separated list of sinks ("stdout", "stderr" or a file
// path); entries are written to all of them. A file that cannot be opened
// is an error rather than a silent fallback.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	out, err := openSinks(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), out, levelOf(cfg.Level))
	return wrap(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))), nil
}

// NewDefault is the logger used before configuration has been loaded:
// info level console output on stdout.
func NewDefault() *Logger {
	core := zapcore.NewCore(newEncoder("text"), zapcore.Lock(os.Stdout), zapcore.InfoLevel)
	return wrap(zap.New(core, zap.AddCaller()))
}

// NewFromCore wraps an existing zapcore.Core, e.g. an observer core in tests.
func NewFromCore(core zapcore.Core) *Logger {
	return wrap(zap.New(core))
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

func wrap(base *zap.Logger) *Logger {
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}

// levelOf maps a configured level name onto zap's levels. Names are case
// insensitive; empty or unrecognised names mean info.
func levelOf(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil || name == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder

	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// openSinks resolves the configured output list. Duplicate entries are
// collapsed so "stdout,stdout" does not print every line twice.
func openSinks(output string) (zapcore.WriteSyncer, error) {
	if strings.TrimSpace(output) == "" {
		output = "stdout"
	}

	seen := make(map[string]bool)
	var sinks []zapcore.WriteSyncer
	for _, name := range strings.Split(output, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "stdout":
			sinks = append(sinks, zapcore.Lock(os.Stdout))
		case "stderr":
			sinks = append(sinks, zapcore.Lock(os.Stderr))
		default:
			f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log output %q: %w", name, err)
			}
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return zapcore.NewMultiWriteSyncer(sinks...), nil
}

// WithComponent returns a Logger tagged with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with("component", name)
}

// WithSource returns a Logger tagged with a data source name.
func (l *Logger) WithSource(source string) *Logger {
	return l.with("source", source)
}

// WithFields returns a Logger carrying fields, added in key order so
// output is stable between runs.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), base: l.base}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
