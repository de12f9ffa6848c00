// Package metrics defines the observability hooks used by the sharding
// runtime, with a no-op default and a Prometheus adapter.
package metrics

// Metrics receives runtime observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// HandlesLive reports the number of registered handles.
	HandlesLive(n int)
	// HandlesLeaked reports how many handles exceeded the leak threshold
	// at the last monitor tick.
	HandlesLeaked(n int)
	// CommandLogged counts a command that passed the elapsed threshold.
	CommandLogged(source string)
	// CommandDropped counts a command dropped because the log queue was full.
	CommandDropped()
	// TypesDiscovered reports the size of the discovered type set.
	TypesDiscovered(n int)
}

// Noop is a drop-in Metrics implementation that does nothing.
type Noop struct{}

func (Noop) HandlesLive(int)      {}
func (Noop) HandlesLeaked(int)    {}
func (Noop) CommandLogged(string) {}
func (Noop) CommandDropped()      {}
func (Noop) TypesDiscovered(int)  {}

// Ensure Noop implements the Metrics interface at compile time.
var _ Metrics = Noop{}

// OrNoop returns m, or Noop when m is nil.
func OrNoop(m Metrics) Metrics {
	if m == nil {
		return Noop{}
	}
	return m
}
