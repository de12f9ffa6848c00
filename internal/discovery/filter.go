package discovery

import "strings"

// reservedPrefixes name framework assemblies that never hold entities.
var reservedPrefixes = []string{"System.", "Microsoft."}

// Filter selects assemblies by name.
//
// A name matches when it does not start with a reserved framework prefix
// and, if the allow-list is non-empty, contains at least one of its entries.
type Filter struct {
	AssemblyNames []string

	// AllowList, when set, supplies the allow-list instead of AssemblyNames.
	// It is read when the filter is applied, so configuration published
	// after the Cache was built still takes effect.
	AllowList func() []string
}

// Resolve returns a copy whose allow-list is fixed to the current value.
func (f Filter) Resolve() Filter {
	return Filter{AssemblyNames: f.allowed()}
}

func (f Filter) allowed() []string {
	if f.AllowList != nil {
		return f.AllowList()
	}
	return f.AssemblyNames
}

// Match reports whether the assembly name passes the filter.
func (f Filter) Match(name string) bool {
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}

	allowed := f.allowed()
	if len(allowed) == 0 {
		return true
	}
	for _, want := range allowed {
		if strings.Contains(name, want) {
			return true
		}
	}
	return false
}
