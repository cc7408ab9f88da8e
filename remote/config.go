// FILE: lixenwraith/propcfg/remote/config.go
package remote

import (
	"errors"
	"net"
	"strconv"

	"github.com/lixenwraith/propcfg"
)

// Config controls the remote surface host
type Config struct {
	BindAddress string
	Port        int
	Token       string // empty rejects every request
	LogLevel    string
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

var (
	schema     = propcfg.NewSchema()
	configType = schema.Namespace("propcfg.remote").Type("Config")

	_ = propcfg.Constant(configType, "DEFAULT_BIND_ADDRESS", "127.0.0.1")
	_ = propcfg.Constant(configType, "DEFAULT_PORT", 9111)
	_ = propcfg.Constant(configType, "DEFAULT_LOG_LEVEL", "info")

	_ = propcfg.Field(configType, "bindAddress", func(c *Config) *string { return &c.BindAddress },
		propcfg.WithEnvVar("PROPCFG_REMOTE_BIND_ADDRESS"),
		propcfg.WithArgument("remoteBindAddress"),
		propcfg.WithProp("propcfg.remote.bindAddress"))
	_ = propcfg.Field(configType, "port", func(c *Config) *int { return &c.Port },
		propcfg.WithEnvVar("PROPCFG_REMOTE_PORT"),
		propcfg.WithArgument("remotePort"),
		propcfg.WithProp("propcfg.remote.port"))
	_ = propcfg.Field(configType, "token", func(c *Config) *string { return &c.Token },
		propcfg.WithEnvVar("PROPCFG_REMOTE_TOKEN"),
		propcfg.WithArgument("remoteToken"),
		propcfg.WithProp("propcfg.remote.token"),
		propcfg.BlockRemote(),
		propcfg.Redact())
	_ = propcfg.Field(configType, "logLevel", func(c *Config) *string { return &c.LogLevel },
		propcfg.WithEnvVar("PROPCFG_REMOTE_LOG_LEVEL"),
		propcfg.WithArgument("remoteLogLevel"),
		propcfg.WithProp("propcfg.remote.logLevel"))
)

// LoadConfig resolves the host configuration with its own engine: environment
// variables, then -D properties, then --remote* arguments, then defaults.
// A nil lookup reads the process environment.
func LoadConfig(args []string, lookup propcfg.LookupFunc) (Config, error) {
	b := propcfg.NewBuilder().WithArgsProperties(args)
	if lookup != nil {
		b = b.WithEnvLookup(lookup)
	}
	engine, err := b.Build()
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	in, err := propcfg.NewInstance(configType, &cfg)
	if err != nil {
		return Config{}, err
	}

	var failures []error
	cbs := propcfg.MustCallbacks(propcfg.Direct(nil, func(f *propcfg.Failure) error {
		failures = append(failures, f.Err)
		return nil
	}))
	if err := engine.ConfigureInstanceWith(cbs, args, in); err != nil {
		return Config{}, err
	}
	return cfg, errors.Join(failures...)
}
