package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultPattern matches assembly manifest files in a base directory.
const DefaultPattern = "*.types.yaml"

// DirSource reads assembly manifests from a directory. Each file is one
// assembly named after the file without the pattern's suffix.
//
// Manifest format:
//
//	types:
//	  - name: App.Core.Order
//	    table: orders
type DirSource struct {
	Dir     string
	Pattern string
}

type manifest struct {
	Types []TypeDescriptor `yaml:"types"`
}

// NewDirSource creates a DirSource for dir using DefaultPattern.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir, Pattern: DefaultPattern}
}

// Assemblies lists manifest files sorted by name. Files are read lazily.
func (s *DirSource) Assemblies() ([]Assembly, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}

	files, err := filepath.Glob(filepath.Join(s.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Dir, err)
	}
	sort.Strings(files)

	suffix := strings.TrimPrefix(pattern, "*")
	assemblies := make([]Assembly, 0, len(files))
	for _, file := range files {
		assemblies = append(assemblies, Assembly{
			Name: strings.TrimSuffix(filepath.Base(file), suffix),
			Load: func() ([]TypeDescriptor, error) {
				return readManifest(file)
			},
		})
	}
	return assemblies, nil
}

func readManifest(path string) ([]TypeDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i, td := range m.Types {
		if td.Name == "" {
			return nil, fmt.Errorf("type %d has no name", i)
		}
	}
	return m.Types, nil
}

// DefaultBaseDir returns the directory of the running executable, falling
// back to the working directory.
func DefaultBaseDir() string {
	exe, err := os.Executable()
	if err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// StaticSource holds assemblies registered explicitly by the program, the
// build-time counterpart of DirSource.
type StaticSource struct {
	mu         sync.Mutex
	assemblies []Assembly
}

// NewStaticSource creates an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

// Register adds an assembly with a fixed list of types.
func (s *StaticSource) Register(name string, types ...TypeDescriptor) {
	snapshot := append([]TypeDescriptor(nil), types...)
	s.RegisterFunc(name, func() ([]TypeDescriptor, error) {
		return snapshot, nil
	})
}

// RegisterFunc adds an assembly whose types are produced by load.
func (s *StaticSource) RegisterFunc(name string, load func() ([]TypeDescriptor, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assemblies = append(s.assemblies, Assembly{Name: name, Load: load})
}

// Assemblies returns the registered assemblies in registration order.
func (s *StaticSource) Assemblies() ([]Assembly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Assembly(nil), s.assemblies...), nil
}

// MultiSource concatenates several sources. A failing source is reported
// only when every source fails.
type MultiSource []Source

// Assemblies implements Source.
func (m MultiSource) Assemblies() ([]Assembly, error) {
	var (
		all  []Assembly
		errs []error
	)
	for _, src := range m {
		assemblies, err := src.Assemblies()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, assemblies...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		return nil, fmt.Errorf("all type sources failed: %v", errs)
	}
	return all, nil
}
