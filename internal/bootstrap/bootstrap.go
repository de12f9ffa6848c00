// Package bootstrap is the composition root of a sharding process. It wires
// command diagnostics, publishes the service context, runs the startup hook
// and starts leak monitoring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dbsmedya/goshard/internal/config"
	"github.com/dbsmedya/goshard/internal/database"
	"github.com/dbsmedya/goshard/internal/diagnostics"
	"github.com/dbsmedya/goshard/internal/discovery"
	"github.com/dbsmedya/goshard/internal/handle"
	"github.com/dbsmedya/goshard/internal/leak"
	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/metrics"
	"github.com/dbsmedya/goshard/internal/sharding"
)

// ErrAlreadyStarted is returned by every Start call after the first.
var ErrAlreadyStarted = errors.New("bootstrapper already started")

// Services is the dependency context shared by every component.
type Services struct {
	Config    *config.Config
	Gate      *sharding.Gate
	Bus       *diagnostics.Bus
	Registry  *handle.Registry
	Discovery *discovery.Cache
	Database  *database.Manager
	Logger    *logger.Logger
	Metrics   metrics.Metrics
}

type servicesKey struct{}

// ContextWithServices returns a copy of ctx carrying s.
func ContextWithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// FromContext returns the services stored by the bootstrapper, as seen by
// the startup hook.
func FromContext(ctx context.Context) (*Services, bool) {
	s, ok := ctx.Value(servicesKey{}).(*Services)
	return s, ok && s != nil
}

// Bootstrapper starts the background machinery exactly once.
type Bootstrapper struct {
	services Services
	leakOpts []leak.Option
	sinkOpts []diagnostics.SinkOption

	started atomic.Bool
	current atomic.Pointer[Services]
	sink    atomic.Pointer[diagnostics.CommandSink]

	cancel      context.CancelFunc
	monitorDone chan struct{}
	stopOnce    sync.Once
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLeakOptions passes extra options to the leak monitor.
func WithLeakOptions(opts ...leak.Option) Option {
	return func(b *Bootstrapper) { b.leakOpts = append(b.leakOpts, opts...) }
}

// WithSinkOptions passes extra options to the command sink.
func WithSinkOptions(opts ...diagnostics.SinkOption) Option {
	return func(b *Bootstrapper) { b.sinkOpts = append(b.sinkOpts, opts...) }
}

// New creates a Bootstrapper. Missing services are filled with defaults
// on Start.
func New(services Services, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{services: services}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Current returns the published services, or nil before Start.
func (b *Bootstrapper) Current() *Services {
	return b.current.Load()
}

// Sink returns the command sink, or nil before Start.
func (b *Bootstrapper) Sink() *diagnostics.CommandSink {
	return b.sink.Load()
}

// Start wires the process. It returns once the leak monitor is scheduled;
// the monitor keeps running until ctx is cancelled or Stop is called.
//
// Start is attempted once. If the startup hook fails, the sink is closed,
// Current returns nil again and the Bootstrapper cannot be restarted.
func (b *Bootstrapper) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	s := b.resolve()
	log := s.Logger.WithComponent("bootstrap")

	var provider sharding.Provider
	if p, err := s.Gate.Provider(); err == nil {
		provider = p
	} else {
		log.Warn("Sharding configuration not initialized yet, using file settings")
	}

	minElapsed := s.Config.Sharding.MinCommandElapsed()
	if provider != nil {
		if d, ok := provider.MinCommandElapsed(); ok {
			minElapsed = d
		}
	}

	sinkOpts := append([]diagnostics.SinkOption{diagnostics.WithMetrics(s.Metrics)}, b.sinkOpts...)
	sink := diagnostics.NewCommandSink(minElapsed, s.Logger, sinkOpts...)
	b.sink.Store(sink)
	s.Bus.Subscribe(sink)

	b.current.Store(s)

	if provider != nil {
		if hook := provider.BootstrapHook(); hook != nil {
			if err := hook(ContextWithServices(ctx, s)); err != nil {
				// The closed sink stays subscribed but ignores events.
				sink.Close()
				b.current.Store(nil)
				return fmt.Errorf("bootstrap hook failed: %w", err)
			}
		}
	}

	leakOpts := append([]leak.Option{
		leak.WithThreshold(s.Config.Sharding.LeakThreshold),
		leak.WithInterval(s.Config.Sharding.LeakInterval),
		leak.WithMetrics(s.Metrics),
	}, b.leakOpts...)
	monitor := leak.NewMonitor(s.Registry, s.Logger, leakOpts...)

	monitorCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.monitorDone = make(chan struct{})
	go func() {
		defer close(b.monitorDone)
		monitor.Run(monitorCtx)
	}()

	log.Infow("Bootstrap complete",
		"min_command_elapsed_ms", minElapsed.Milliseconds(),
		"leak_threshold", monitor.GetThreshold().String(),
		"leak_interval", monitor.GetInterval().String(),
	)
	return nil
}

// Run starts the bootstrapper and blocks until ctx is done.
func (b *Bootstrapper) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	b.Stop()
	return nil
}

// Stop cancels the leak monitor, waits for it to exit and flushes the
// command sink. It is safe to call more than once and before Start.
func (b *Bootstrapper) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
			<-b.monitorDone
		}
		if sink := b.sink.Load(); sink != nil {
			sink.Close()
		}
	})
}

func (b *Bootstrapper) resolve() *Services {
	s := b.services
	if s.Config == nil {
		s.Config = config.DefaultConfig()
	}
	if s.Logger == nil {
		s.Logger = logger.NewDefault()
	}
	s.Metrics = metrics.OrNoop(s.Metrics)
	if s.Gate == nil {
		s.Gate = sharding.NewGate()
	}
	if s.Bus == nil {
		s.Bus = diagnostics.NewBus(diagnostics.WithBusLogger(s.Logger))
	}
	if s.Registry == nil {
		s.Registry = handle.NewRegistry()
	}
	if s.Discovery == nil {
		baseDir := s.Config.Sharding.BaseDir
		if baseDir == "" {
			baseDir = discovery.DefaultBaseDir()
		}
		s.Discovery = discovery.NewCache(
			discovery.NewDirSource(baseDir),
			discovery.Filter{AllowList: s.Gate.AssemblyNames},
			s.Logger,
			discovery.WithMetrics(s.Metrics),
		)
	}
	return &s
}
