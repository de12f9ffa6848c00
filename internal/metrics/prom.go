package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom implements Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Prom struct {
	handlesLive    prometheus.Gauge
	handlesLeaked  prometheus.Gauge
	commandsLogged *prometheus.CounterVec
	commandsDrop   prometheus.Counter
	typesFound     prometheus.Gauge
}

// NewProm constructs a Prometheus metrics adapter.
//   - reg: registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:  Prometheus namespace
func NewProm(reg prometheus.Registerer, ns string) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		handlesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "handles",
			Name:      "live",
			Help:      "Registered database context handles",
		}),
		handlesLeaked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "handles",
			Name:      "leaked",
			Help:      "Handles older than the leak threshold at the last check",
		}),
		commandsLogged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "commands",
				Name:      "logged_total",
				Help:      "Commands at or above the elapsed threshold, by source",
			},
			[]string{"source"},
		),
		commandsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "commands",
			Name:      "dropped_total",
			Help:      "Command diagnostics dropped because the log queue was full",
		}),
		typesFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "discovery",
			Name:      "types",
			Help:      "Entity types found by discovery",
		}),
	}
	reg.MustRegister(p.handlesLive, p.handlesLeaked, p.commandsLogged, p.commandsDrop, p.typesFound)
	return p
}

func (p *Prom) HandlesLive(n int)   { p.handlesLive.Set(float64(n)) }
func (p *Prom) HandlesLeaked(n int) { p.handlesLeaked.Set(float64(n)) }

func (p *Prom) CommandLogged(source string) {
	p.commandsLogged.WithLabelValues(source).Inc()
}

func (p *Prom) CommandDropped()       { p.commandsDrop.Inc() }
func (p *Prom) TypesDiscovered(n int) { p.typesFound.Set(float64(n)) }

var _ Metrics = (*Prom)(nil)
