package diagnostics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/metrics"
)

// DefaultQueueSize bounds the events waiting to be logged.
const DefaultQueueSize = 1024

// CommandSink logs commands whose elapsed time is at or above a minimum.
// Accepted events are queued and written by a background worker so the
// publishing command is never held up by log I/O.
type CommandSink struct {
	minElapsed time.Duration
	logger     *logger.Logger
	metrics    metrics.Metrics
	queueSize  int

	mu      sync.RWMutex
	closed  bool
	queue   chan CommandEvent
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// SinkOption configures a CommandSink.
type SinkOption func(*CommandSink)

// WithQueueSize sets the capacity of the log queue.
func WithQueueSize(n int) SinkOption {
	return func(s *CommandSink) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMetrics counts logged and dropped commands.
func WithMetrics(m metrics.Metrics) SinkOption {
	return func(s *CommandSink) { s.metrics = metrics.OrNoop(m) }
}

// NewCommandSink creates a sink and starts its log worker. Call Close to
// flush pending events and stop the worker.
func NewCommandSink(minElapsed time.Duration, log *logger.Logger, opts ...SinkOption) *CommandSink {
	if log == nil {
		log = logger.NewDefault()
	}
	if minElapsed < 0 {
		minElapsed = 0
	}
	s := &CommandSink{
		minElapsed: minElapsed,
		logger:     log.WithComponent("command-diagnostics"),
		metrics:    metrics.Noop{},
		queueSize:  DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.queue = make(chan CommandEvent, s.queueSize)
	s.done = make(chan struct{})
	go s.worker()
	return s
}

// OnCommand implements Subscriber.
func (s *CommandSink) OnCommand(ev CommandEvent) {
	s.Observe(ev)
}

// Observe queues ev for logging when it meets the threshold. It reports
// whether the event was queued. It never blocks: a full queue drops the event.
func (s *CommandSink) Observe(ev CommandEvent) bool {
	if ev.Elapsed < s.minElapsed {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.queue <- ev:
		return true
	default:
		s.dropped.Add(1)
		s.metrics.CommandDropped()
		return false
	}
}

// MinElapsed returns the configured threshold.
func (s *CommandSink) MinElapsed() time.Duration {
	return s.minElapsed
}

// Dropped returns how many events were discarded because the queue was full.
func (s *CommandSink) Dropped() int64 {
	return s.dropped.Load()
}

// Failed returns how many accepted events could not be written because the
// logger panicked.
func (s *CommandSink) Failed() int64 {
	return s.failed.Load()
}

// Close stops accepting events and waits until queued events are logged.
// It is safe to call more than once.
func (s *CommandSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *CommandSink) worker() {
	defer close(s.done)
	for ev := range s.queue {
		s.write(ev)
	}
}

func (s *CommandSink) write(ev CommandEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.failed.Add(1)
		}
	}()

	fields := []interface{}{
		"source", ev.Source,
		"elapsed_ms", float64(ev.Elapsed.Nanoseconds()) / 1e6,
		"command", ev.Command,
		"rows", ev.RowsAffected,
	}
	if ev.Err != nil {
		s.logger.Warnw("Command failed", append(fields, "error", ev.Err)...)
	} else {
		s.logger.Infow("Command executed", fields...)
	}
	s.metrics.CommandLogged(ev.Source)
}
