package discovery

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/metrics"
)

// Cache computes the discovered type set on first use and returns the same
// slice on every later call. The returned slice must not be modified.
type Cache struct {
	src     Source
	filter  Filter
	logger  *logger.Logger
	metrics metrics.Metrics
	workers int

	mu    sync.Mutex
	types atomic.Pointer[[]TypeDescriptor]
	scans atomic.Int32
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics reports the discovered type count.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = metrics.OrNoop(m) }
}

// WithWorkers bounds how many assemblies are loaded concurrently.
func WithWorkers(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCache creates a Cache over src. The scan does not start until
// GetAllEntityTypes is first called.
func NewCache(src Source, filter Filter, log *logger.Logger, opts ...Option) *Cache {
	if log == nil {
		log = logger.NewDefault()
	}
	c := &Cache{
		src:     src,
		filter:  filter,
		logger:  log.WithComponent("discovery"),
		metrics: metrics.Noop{},
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAllEntityTypes returns the discovered types, scanning on first call.
// Concurrent first callers wait for a single scan.
func (c *Cache) GetAllEntityTypes() []TypeDescriptor {
	if p := c.types.Load(); p != nil {
		return *p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.types.Load(); p != nil {
		return *p
	}

	types := c.scan()
	c.types.Store(&types)
	return types
}

// Find returns the descriptor with the given fully-qualified name.
func (c *Cache) Find(name string) (TypeDescriptor, bool) {
	for _, td := range c.GetAllEntityTypes() {
		if td.Name == name {
			return td, true
		}
	}
	return TypeDescriptor{}, false
}

// Scans returns how many scans have run. It is at most one.
func (c *Cache) Scans() int {
	return int(c.scans.Load())
}

func (c *Cache) scan() []TypeDescriptor {
	c.scans.Add(1)
	startTime := time.Now()

	types := []TypeDescriptor{}
	if c.src == nil {
		c.logger.Warn("No type source configured, entity discovery is empty")
		return types
	}

	assemblies, err := c.src.Assemblies()
	if err != nil {
		c.logger.Warnf("Failed to enumerate assemblies: %v", err)
		return types
	}

	filter := c.filter.Resolve()
	selected := make([]Assembly, 0, len(assemblies))
	for _, asm := range assemblies {
		if filter.Match(asm.Name) {
			selected = append(selected, asm)
		}
	}

	// Each worker owns one slot, so no locking is needed while loading.
	results := make([][]TypeDescriptor, len(selected))
	failures := make([]error, len(selected))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, asm := range selected {
		g.Go(func() error {
			loaded, err := loadAssembly(asm)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = loaded
			return nil
		})
	}
	_ = g.Wait()

	skipped := 0
	for i, asm := range selected {
		if failures[i] != nil {
			skipped++
			c.logger.Debugw("Skipping assembly", "assembly", asm.Name, "error", failures[i])
			continue
		}
		for _, td := range results[i] {
			td.Assembly = asm.Name
			types = append(types, td)
		}
	}

	c.metrics.TypesDiscovered(len(types))
	c.logger.Infow("Entity type discovery complete",
		"assemblies", len(selected),
		"skipped", skipped,
		"types", len(types),
		"duration", time.Since(startTime),
	)
	return types
}

// loadAssembly converts load failures, including panics, into an
// AssemblyLoadError.
func loadAssembly(asm Assembly) (types []TypeDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AssemblyLoadError{Assembly: asm.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if asm.Load == nil {
		return nil, nil
	}
	types, err = asm.Load()
	if err != nil {
		return nil, &AssemblyLoadError{Assembly: asm.Name, Err: err}
	}
	return types, nil
}
