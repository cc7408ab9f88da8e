// FILE: lixenwraith/propcfg/builder_test.go
package propcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		e, err := NewBuilder().Build()
		require.NoError(t, err)
		require.NotNil(t, e.Properties())
		assert.Len(t, e.Chain(), 5)
		assert.Nil(t, e.metrics)
	})

	t.Run("FileLayering", func(t *testing.T) {
		dir := t.TempDir()
		base := filepath.Join(dir, "base.toml")
		local := filepath.Join(dir, "local.yaml")
		require.NoError(t, os.WriteFile(base, []byte("port = 1\nhost = \"base\"\nname = \"base\"\n"), 0644))
		require.NoError(t, os.WriteFile(local, []byte("host: local\n"), 0644))

		explicit := NewProperties()
		explicit.Set("name", "explicit")

		e, err := NewBuilder().
			WithPropertiesFile(base).
			WithPropertiesFile(local).
			WithProperties(explicit).
			WithArgsProperties([]string{"-Dport=9"}).
			Build()
		require.NoError(t, err)

		props := e.Properties()
		v, _ := props.Get("port")
		assert.Equal(t, "9", v, "-D arguments win over files")
		v, _ = props.Get("host")
		assert.Equal(t, "local", v, "later files win over earlier ones")
		v, _ = props.Get("name")
		assert.Equal(t, "explicit", v, "explicit properties win over files")
	})

	t.Run("MissingFileIsNotFatal", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent.toml")

		e, err := NewBuilder().WithPropertiesFile(missing).Build()
		assert.ErrorIs(t, err, ErrPropertiesNotFound)
		require.NotNil(t, e)

		assert.NotPanics(t, func() {
			NewBuilder().WithPropertiesFile(missing).MustBuild()
		})
	})

	t.Run("MalformedFileIsFatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		e, err := NewBuilder().WithPropertiesFile(path).Build()
		require.Error(t, err)
		assert.Nil(t, e)
		assert.Panics(t, func() { NewBuilder().WithPropertiesFile(path).MustBuild() })
	})

	t.Run("FileOptions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "props.conf")
		require.NoError(t, os.WriteFile(path, []byte("port: 7\n"), 0644))

		e, err := NewBuilder().
			WithFileOptions(FileOptions{Format: "yaml"}).
			WithPropertiesFile(path).
			Build()
		require.NoError(t, err)
		v, _ := e.Properties().Get("port")
		assert.Equal(t, 7, v)
	})

	t.Run("NilEnvLookup", func(t *testing.T) {
		_, err := NewBuilder().WithEnvLookup(nil).Build()
		assert.Error(t, err)
	})

	t.Run("EnvLookup", func(t *testing.T) {
		schema := NewSchema()
		typ := schema.Namespace("b").Type("Env")
		v := ""
		Static(typ, "region", &v)

		e, err := NewBuilder().WithEnvLookup(envOf("REGION", "eu")).Build()
		require.NoError(t, err)
		require.NoError(t, e.ConfigureType(nil, typ))
		assert.Equal(t, "eu", v)
	})

	t.Run("WithChain", func(t *testing.T) {
		props := NewProperties()
		props.Set("level", "3")

		e, err := NewBuilder().
			WithChain(&ArgumentMechanism{}, &PropertyMechanism{Props: props}).
			Build()
		require.NoError(t, err)
		assert.Nil(t, e.Properties())

		schema := NewSchema()
		typ := schema.Namespace("b").Type("Chain")
		level := 0
		Static(typ, "level", &level)

		require.NoError(t, e.ConfigureType([]string{"--level=8"}, typ))
		assert.Equal(t, 8, level, "arguments come first in this chain")

		require.NoError(t, e.ConfigureType(nil, typ))
		assert.Equal(t, 3, level)
	})

	t.Run("WithMetrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		e, err := NewBuilder().WithMetrics(reg).Build()
		require.NoError(t, err)
		assert.NotNil(t, e.metrics)

		// a second engine on the same registry reuses the counters
		_, err = NewBuilder().WithMetrics(reg).Build()
		require.NoError(t, err)
	})
}
