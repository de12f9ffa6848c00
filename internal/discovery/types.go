// Package discovery finds candidate entity types once per process.
//
// Types come from a Source of named assemblies. Assemblies are filtered by
// name, loaded in parallel and the combined result is cached for the
// lifetime of the Cache.
package discovery

import "fmt"

// TypeDescriptor identifies one candidate entity type.
type TypeDescriptor struct {
	Name     string `yaml:"name"`
	Table    string `yaml:"table,omitempty"`
	Assembly string `yaml:"-"`
}

// Assembly is a named, lazily loaded group of type descriptors.
type Assembly struct {
	Name string
	Load func() ([]TypeDescriptor, error)
}

// Source enumerates the assemblies available to discovery.
type Source interface {
	Assemblies() ([]Assembly, error)
}

// AssemblyLoadError reports an assembly that could not be loaded or
// introspected. Discovery skips such assemblies.
type AssemblyLoadError struct {
	Assembly string
	Err      error
}

func (e *AssemblyLoadError) Error() string {
	return fmt.Sprintf("load assembly %q: %v", e.Assembly, e.Err)
}

func (e *AssemblyLoadError) Unwrap() error {
	return e.Err
}
