package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dbsmedya/goshard/internal/diagnostics"
	"github.com/dbsmedya/goshard/internal/logger"
)

// Tracer adapts GORM's logger interface: every traced statement is
// published to the diagnostics bus, GORM's own messages go to the logger.
type Tracer struct {
	source   string
	bus      *diagnostics.Bus
	logger   *logger.Logger
	LogLevel gormlogger.LogLevel
}

// NewTracer creates a Tracer publishing events tagged with source.
func NewTracer(source string, bus *diagnostics.Bus, log *logger.Logger, level gormlogger.LogLevel) *Tracer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Tracer{
		source:   source,
		bus:      bus,
		logger:   log.WithSource(source),
		LogLevel: level,
	}
}

// LogMode sets the log level.
func (t *Tracer) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newTracer := *t
	newTracer.LogLevel = level
	return &newTracer
}

// Info logs info messages.
func (t *Tracer) Info(ctx context.Context, msg string, data ...interface{}) {
	if t.LogLevel >= gormlogger.Info {
		t.logger.Infof(msg, data...)
	}
}

// Warn logs warning messages.
func (t *Tracer) Warn(ctx context.Context, msg string, data ...interface{}) {
	if t.LogLevel >= gormlogger.Warn {
		t.logger.Warnf(msg, data...)
	}
}

// Error logs error messages.
func (t *Tracer) Error(ctx context.Context, msg string, data ...interface{}) {
	if t.LogLevel >= gormlogger.Error {
		t.logger.Errorf(msg, data...)
	}
}

// Trace publishes the executed statement. Record-not-found is not treated
// as a command failure.
func (t *Tracer) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if t.bus == nil {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}

	t.bus.Publish(diagnostics.CommandEvent{
		Source:       t.source,
		Command:      sql,
		Elapsed:      elapsed,
		RowsAffected: rows,
		Err:          err,
		Time:         begin,
	})
}

// Ensure interface compliance
var _ gormlogger.Interface = (*Tracer)(nil)
