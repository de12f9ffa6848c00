package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goshard/internal/logger"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDirSource_Assemblies(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "App.Shard.types.yaml", "types:\n  - name: App.Shard.Order\n    table: orders\n")
	writeManifest(t, dir, "App.Core.types.yaml", "types:\n  - name: App.Core.User\n")
	writeManifest(t, dir, "notes.txt", "ignored")

	src := NewDirSource(dir)
	assemblies, err := src.Assemblies()
	require.NoError(t, err)
	require.Len(t, assemblies, 2)
	assert.Equal(t, "App.Core", assemblies[0].Name)
	assert.Equal(t, "App.Shard", assemblies[1].Name)

	types, err := assemblies[1].Load()
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "App.Shard.Order", types[0].Name)
	assert.Equal(t, "orders", types[0].Table)
}

func TestDirSource_WithCache(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "System.Foo.types.yaml", "types:\n  - name: System.Foo.T\n")
	writeManifest(t, dir, "Microsoft.Bar.types.yaml", "types:\n  - name: Microsoft.Bar.T\n")
	writeManifest(t, dir, "App.Core.types.yaml", "types:\n  - name: App.Core.User\n")
	writeManifest(t, dir, "App.Shard.types.yaml", "types:\n  - name: App.Shard.Order\n")
	writeManifest(t, dir, "App.Broken.types.yaml", "types: [::not yaml")
	writeManifest(t, dir, "App.Nameless.types.yaml", "types:\n  - table: t\n")

	c := NewCache(NewDirSource(dir), Filter{}, logger.NewNop())
	types := c.GetAllEntityTypes()

	names := make([]string, 0, len(types))
	for _, td := range types {
		names = append(names, td.Name)
	}
	assert.Equal(t, []string{"App.Core.User", "App.Shard.Order"}, names)
}

func TestDirSource_EmptyDir(t *testing.T) {
	assemblies, err := NewDirSource(t.TempDir()).Assemblies()
	require.NoError(t, err)
	assert.Empty(t, assemblies)
}

func TestDirSource_BadPattern(t *testing.T) {
	src := &DirSource{Dir: t.TempDir(), Pattern: "[invalid"}
	_, err := src.Assemblies()
	assert.Error(t, err)
}

func TestDirSource_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App.Gone.types.yaml")
	writeManifest(t, dir, "App.Gone.types.yaml", "types: []\n")

	assemblies, err := NewDirSource(dir).Assemblies()
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = assemblies[0].Load()
	assert.Error(t, err)
}

func TestStaticSource_Order(t *testing.T) {
	src := NewStaticSource()
	src.Register("B")
	src.Register("A")

	assemblies, err := src.Assemblies()
	require.NoError(t, err)
	require.Len(t, assemblies, 2)
	assert.Equal(t, "B", assemblies[0].Name)
	assert.Equal(t, "A", assemblies[1].Name)
}

func TestMultiSource(t *testing.T) {
	a := NewStaticSource()
	a.Register("App.A", TypeDescriptor{Name: "App.A.T"})

	assemblies, err := MultiSource{a, failingSource{}}.Assemblies()
	require.NoError(t, err)
	assert.Len(t, assemblies, 1)

	_, err = MultiSource{failingSource{}}.Assemblies()
	assert.Error(t, err)
}

func TestDefaultBaseDir(t *testing.T) {
	assert.NotEmpty(t, DefaultBaseDir())
}
