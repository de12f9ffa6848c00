// Package leak reports database context handles that stay open too long.
package leak

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/goshard/internal/handle"
	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/metrics"
	"github.com/dbsmedya/goshard/internal/scheduler"
)

// Defaults match the check cadence and age limit of long-lived contexts.
const (
	DefaultThreshold = 5 * time.Minute
	DefaultInterval  = 5 * time.Minute
)

// Leak is a handle whose age exceeded the threshold.
type Leak struct {
	Record  handle.Record
	Elapsed time.Duration
}

// ElapsedMinutes returns the handle age in fractional minutes.
func (l Leak) ElapsedMinutes() float64 {
	return l.Elapsed.Minutes()
}

// Monitor periodically scans a handle.Registry and warns about old handles.
// It only observes: handles are never released by the monitor.
type Monitor struct {
	registry  *handle.Registry
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *logger.Logger
	metrics   metrics.Metrics
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithThreshold sets the age above which a handle is reported.
func WithThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// WithInterval sets how often the registry is scanned.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock overrides the time source used to compute ages.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithMetrics reports live and leaked handle counts on every tick.
func WithMetrics(mt metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics.OrNoop(mt) }
}

// NewMonitor creates a leak monitor over reg.
func NewMonitor(reg *handle.Registry, log *logger.Logger, opts ...Option) *Monitor {
	if log == nil {
		log = logger.NewDefault()
	}
	m := &Monitor{
		registry:  reg,
		threshold: DefaultThreshold,
		interval:  DefaultInterval,
		now:       time.Now,
		logger:    log.WithComponent("leak-monitor"),
		metrics:   metrics.Noop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check returns every handle older than the threshold at now.
func (m *Monitor) Check(now time.Time) []Leak {
	var leaks []Leak
	for _, rec := range m.registry.Snapshot() {
		age := rec.Age(now)
		if age > m.threshold {
			leaks = append(leaks, Leak{Record: rec, Elapsed: age})
		}
	}
	return leaks
}

// Tick runs one scan and logs a warning per leaked handle. A failure to log
// one leak does not prevent the others from being reported; the failures
// are returned together.
func (m *Monitor) Tick(ctx context.Context) error {
	now := m.now()
	leaks := m.Check(now)

	m.metrics.HandlesLive(m.registry.Len())
	m.metrics.HandlesLeaked(len(leaks))

	failed := 0
	for _, l := range leaks {
		if err := m.report(l); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to report %d of %d leaked handles", failed, len(leaks))
	}
	return nil
}

func (m *Monitor) report(l Leak) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("log leak %s: %v", l.Record.ID, r)
		}
	}()

	m.logger.Warnw("Database context not released for a long time",
		"elapsed_minutes", l.ElapsedMinutes(),
		"handle_id", l.Record.ID.String(),
		"source", l.Record.Source,
		"stack_trace", l.Record.CreateStackTrace,
	)
	return nil
}

// Run schedules Tick every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Infof("Leak monitoring ENABLED (threshold: %s, interval: %s)", m.threshold, m.interval)
	scheduler.Every(ctx, "leak-monitor", m.interval, m.Tick, m.logger)
}

// GetThreshold returns the configured leak threshold.
func (m *Monitor) GetThreshold() time.Duration {
	return m.threshold
}

// GetInterval returns the configured check interval.
func (m *Monitor) GetInterval() time.Duration {
	return m.interval
}
