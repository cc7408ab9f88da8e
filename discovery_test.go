// FILE: lixenwraith/propcfg/discovery_test.go
package propcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDiscoveryOptions(t *testing.T) {
	opts := DefaultDiscoveryOptions("traffic-demo")
	assert.Equal(t, "traffic-demo", opts.Name)
	assert.Equal(t, "TRAFFIC_DEMO_PROPERTIES", opts.EnvVar)
	assert.Equal(t, "--properties", opts.Flag)
	assert.True(t, opts.UseXDG)
}

func TestDiscoverProperties(t *testing.T) {
	opts := DiscoveryOptions{
		Name:       "app",
		Extensions: []string{".toml", ".yaml"},
		EnvVar:     "APP_PROPERTIES",
		Flag:       "--properties",
	}

	t.Run("FlagWithEquals", func(t *testing.T) {
		path, ok := DiscoverProperties(opts, []string{"--properties=/tmp/a.toml"}, envOf("APP_PROPERTIES", "/tmp/env.toml"))
		require.True(t, ok)
		assert.Equal(t, "/tmp/a.toml", path)
	})

	t.Run("FlagWithValue", func(t *testing.T) {
		path, ok := DiscoverProperties(opts, []string{"--properties", "/tmp/b.toml"}, envOf())
		require.True(t, ok)
		assert.Equal(t, "/tmp/b.toml", path)
	})

	t.Run("EnvVar", func(t *testing.T) {
		path, ok := DiscoverProperties(opts, nil, envOf("APP_PROPERTIES", "/tmp/env.toml"))
		require.True(t, ok)
		assert.Equal(t, "/tmp/env.toml", path)
	})

	t.Run("SearchPathsInExtensionOrder", func(t *testing.T) {
		first, second := t.TempDir(), t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(second, "app.toml"), []byte("a = 1\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(first, "app.yaml"), []byte("a: 1\n"), 0644))

		search := opts
		search.Paths = []string{first, second}
		path, ok := DiscoverProperties(search, nil, envOf())
		require.True(t, ok)
		assert.Equal(t, filepath.Join(first, "app.yaml"), path)
	})

	t.Run("XDGConfigHome", func(t *testing.T) {
		home := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(home, "app"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(home, "app", "app.toml"), []byte("a = 1\n"), 0644))

		search := opts
		search.UseXDG = true
		path, ok := DiscoverProperties(search, nil, envOf("XDG_CONFIG_HOME", home, "XDG_CONFIG_DIRS", t.TempDir()))
		require.True(t, ok)
		assert.Equal(t, filepath.Join(home, "app", "app.toml"), path)
	})

	t.Run("NothingFound", func(t *testing.T) {
		search := opts
		search.Paths = []string{t.TempDir()}
		_, ok := DiscoverProperties(search, nil, envOf())
		assert.False(t, ok)
	})
}

func TestBuilderWithFileDiscovery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc.toml"), []byte("level = 4\n"), 0644))

	opts := DiscoveryOptions{Name: "svc", Extensions: []string{".toml"}, Paths: []string{dir}}
	e, err := NewBuilder().
		WithEnvLookup(envOf()).
		WithFileDiscovery(opts, nil).
		Build()
	require.NoError(t, err)

	v, ok := e.Properties().Get("level")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
}
