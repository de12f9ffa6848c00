// Package sharding holds the write-once sharding configuration of a process.
//
// A Gate is created by the composition root and handed to every consumer.
// Setup code calls Init exactly once; afterwards the configuration is frozen
// into a Provider and can be read without locking.
package sharding

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyInitialized is returned by every Init call after the first.
	ErrAlreadyInitialized = errors.New("sharding configuration can only be initialized once")

	// ErrNotInitialized is returned when the configuration is read before
	// Init completed successfully.
	ErrNotInitialized = errors.New("sharding configuration is not initialized, call Gate.Init first")
)

// Gate enforces exactly-once initialization of the sharding configuration.
type Gate struct {
	mu       sync.Mutex
	consumed bool

	provider      atomic.Pointer[memoryProvider]
	assemblyNames atomic.Pointer[[]string]
}

// NewGate creates an uninitialized Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Init runs configInit once with a fresh ConfigInit sink and publishes the
// accumulated entries as the Provider.
//
// The gate is consumed before configInit runs: if configInit fails, its
// error is returned, nothing is published and later Init calls still fail
// with ErrAlreadyInitialized.
func (g *Gate) Init(configInit func(ConfigInit) error) error {
	if configInit == nil {
		return fmt.Errorf("sharding: config init function is nil")
	}

	g.mu.Lock()
	if g.consumed {
		g.mu.Unlock()
		return ErrAlreadyInitialized
	}
	g.consumed = true
	g.mu.Unlock()

	// configInit runs unlocked so that a nested Init fails instead of
	// deadlocking.
	sink := newMemoryProvider()
	if err := configInit(sink); err != nil {
		return fmt.Errorf("sharding: config init failed: %w", err)
	}

	if sink.assemblyNames != nil {
		names := append([]string(nil), sink.assemblyNames...)
		g.assemblyNames.Store(&names)
	}
	g.provider.Store(sink.freeze())
	return nil
}

// CheckInit fails with ErrNotInitialized until Init has succeeded.
func (g *Gate) CheckInit() error {
	if g.provider.Load() == nil {
		return ErrNotInitialized
	}
	return nil
}

// Initialized reports whether a Provider has been published.
func (g *Gate) Initialized() bool {
	return g.provider.Load() != nil
}

// Provider returns the frozen configuration.
func (g *Gate) Provider() (Provider, error) {
	p := g.provider.Load()
	if p == nil {
		return nil, ErrNotInitialized
	}
	return p, nil
}

// AssemblyNames returns the discovery allow-list, or nil when none was set.
func (g *Gate) AssemblyNames() []string {
	p := g.assemblyNames.Load()
	if p == nil {
		return nil
	}
	return append([]string(nil), (*p)...)
}
