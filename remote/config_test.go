// FILE: lixenwraith/propcfg/remote/config_test.go
package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(pairs ...string) func(string) (string, bool) {
	env := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		env[pairs[i]] = pairs[i+1]
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil, envOf())
	require.NoError(t, err)

	assert.Equal(t, Config{
		BindAddress: "127.0.0.1",
		Port:        9111,
		LogLevel:    "info",
	}, cfg)
	assert.Equal(t, "127.0.0.1:9111", cfg.Addr())
}

func TestLoadConfigSources(t *testing.T) {
	t.Run("Environment", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"--remotePort=1"}, envOf(
			"PROPCFG_REMOTE_PORT", "9200",
			"PROPCFG_REMOTE_TOKEN", "env-token",
			"PROPCFG_REMOTE_BIND_ADDRESS", "0.0.0.0",
		))
		require.NoError(t, err)
		assert.Equal(t, 9200, cfg.Port, "environment beats arguments")
		assert.Equal(t, "env-token", cfg.Token)
		assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	})

	t.Run("Properties", func(t *testing.T) {
		cfg, err := LoadConfig([]string{
			"-Dpropcfg.remote.logLevel=debug",
			"--remoteLogLevel=warn",
		}, envOf())
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel, "-D properties beat arguments")
	})

	t.Run("Arguments", func(t *testing.T) {
		cfg, err := LoadConfig([]string{
			"--remotePort=9300",
			"--remoteToken=arg-token",
			"--port=1",
		}, envOf())
		require.NoError(t, err)
		assert.Equal(t, 9300, cfg.Port)
		assert.Equal(t, "arg-token", cfg.Token)
	})

	t.Run("DefaultNamesIgnored", func(t *testing.T) {
		cfg, err := LoadConfig(nil, envOf("PORT", "1", "TOKEN", "leak"))
		require.NoError(t, err)
		assert.Equal(t, 9111, cfg.Port)
		assert.Empty(t, cfg.Token)
	})
}

func TestLoadConfigInvalid(t *testing.T) {
	cfg, err := LoadConfig([]string{"--remotePort=http"}, envOf())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coercion failed")
	assert.Equal(t, "127.0.0.1", cfg.BindAddress, "other fields still resolve")
	assert.Zero(t, cfg.Port)
}

func TestConfigTokenIsRedacted(t *testing.T) {
	p, ok := configType.Property("token")
	require.True(t, ok)
	assert.True(t, p.Descriptor().Redact)
	assert.True(t, p.Descriptor().BlockRemote)
	assert.False(t, p.Static())
}
