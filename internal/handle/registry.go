// Package handle tracks live database context handles so that long-lived
// ones can be reported as leaks.
package handle

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"
)

// Token identifies a registered handle.
type Token uuid.UUID

// String returns the canonical UUID form.
func (t Token) String() string {
	return uuid.UUID(t).String()
}

// Record describes one outstanding handle.
type Record struct {
	ID               Token
	Source           string
	CreateTime       time.Time
	CreateStackTrace string
}

// Age returns how long the handle has been alive at now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreateTime)
}

// Registry is a concurrency-safe set of handle records kept in creation
// order.
type Registry struct {
	mu      sync.Mutex
	records *orderedmap.OrderedMap[Token, Record]
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records: orderedmap.NewOrderedMap[Token, Record](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records a new handle created at the current time.
func (r *Registry) Register(stackTrace string) Token {
	return r.RegisterSource("", stackTrace)
}

// RegisterSource records a new handle tagged with the data source it
// belongs to.
func (r *Registry) RegisterSource(source, stackTrace string) Token {
	token := Token(uuid.New())
	rec := Record{
		ID:               token,
		Source:           source,
		CreateTime:       r.now(),
		CreateStackTrace: stackTrace,
	}

	r.mu.Lock()
	r.records.Set(token, rec)
	r.mu.Unlock()

	return token
}

// Unregister removes the handle. It reports whether the handle was present.
func (r *Registry) Unregister(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records.Delete(token)
}

// Snapshot returns a point-in-time copy of all records, oldest first.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, r.records.Len())
	for el := r.records.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records.Len()
}

// CaptureStack returns the calling goroutine's stack trace.
func CaptureStack() string {
	return string(debug.Stack())
}
