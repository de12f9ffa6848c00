// Package diagnostics carries command execution events from any number of
// publishers to subscribers such as the slow command log.
package diagnostics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbsmedya/goshard/internal/logger"
)

// CommandEvent describes one executed database command.
type CommandEvent struct {
	Source       string
	Command      string
	Elapsed      time.Duration
	RowsAffected int64
	Err          error
	Time         time.Time
}

// Subscriber receives command events. OnCommand may be called concurrently
// from several publishers and must not block for long.
type Subscriber interface {
	OnCommand(ev CommandEvent)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ev CommandEvent)

// OnCommand calls f(ev).
func (f SubscriberFunc) OnCommand(ev CommandEvent) { f(ev) }

// Bus fans out events to every subscriber on the publisher's goroutine.
// Publishing takes no lock; subscribing copies the subscriber list.
type Bus struct {
	mu     sync.Mutex
	subs   atomic.Pointer[[]Subscriber]
	logger *logger.Logger
	panics atomic.Int64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger reports recovered subscriber panics at debug level.
func WithBusLogger(log *logger.Logger) BusOption {
	return func(b *Bus) {
		if log != nil {
			b.logger = log.WithComponent("diagnostics-bus")
		}
	}
}

// NewBus creates a Bus without subscribers.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.subs.Store(&[]Subscriber{})
	return b
}

// Subscribe adds s for the lifetime of the bus.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := *b.subs.Load()
	next := make([]Subscriber, len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	b.subs.Store(&next)
}

// Publish delivers ev to every subscriber. A panicking subscriber does not
// affect the publisher or the remaining subscribers.
func (b *Bus) Publish(ev CommandEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, s := range *b.subs.Load() {
		b.deliver(s, ev)
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Bus) Subscribers() int {
	return len(*b.subs.Load())
}

// Panics returns how many subscriber panics were recovered.
func (b *Bus) Panics() int64 {
	return b.panics.Load()
}

func (b *Bus) deliver(s Subscriber, ev CommandEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.reportPanic(ev, r)
		}
	}()
	s.OnCommand(ev)
}

// reportPanic must not let a broken logger escape into the publisher.
func (b *Bus) reportPanic(ev CommandEvent, r interface{}) {
	defer func() { _ = recover() }()
	b.logger.Debugw("Subscriber panicked", "source", ev.Source, "panic", r)
}
