// FILE: lixenwraith/propcfg/cmd/propcfg-demo/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/propcfg"
	"github.com/lixenwraith/propcfg/remote"
)

// Traffic settings, adjustable through env, -D properties, --args, a
// properties file, or the remote surface
var (
	maxVehicles = 100
	minSpeed    = 10.0
	mode        = "normal"
	signalDelay = 2 * time.Second
	apiKey      = ""
)

var (
	schema  = propcfg.NewSchema()
	traffic = schema.Namespace("demo.traffic").Type("Settings")

	_ = propcfg.Constant(traffic, "DEFAULT_MODE", "rush-hour")

	maxVehiclesProp = propcfg.Static(traffic, "maxVehicles", &maxVehicles)
	minSpeedProp    = propcfg.Static(traffic, "minSpeed", &minSpeed)
	modeProp        = propcfg.Static(traffic, "mode", &mode)
	signalDelayProp = propcfg.Static(traffic, "signalDelay", &signalDelay, propcfg.WithRemoteKey("traffic.signalDelay"))
	_               = propcfg.Static(traffic, "apiKey", &apiKey, propcfg.BlockRemote(), propcfg.Redact())
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "propcfg-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	remoteCfg, err := remote.LoadConfig(args, nil)
	if err != nil {
		return fmt.Errorf("remote config: %w", err)
	}

	level, err := zap.ParseAtomicLevel(remoteCfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	logger, err := zapCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	discovery := propcfg.DefaultDiscoveryOptions("propcfg-demo")
	reg := prometheus.NewRegistry()
	engine, err := propcfg.NewBuilder().
		WithFileDiscovery(discovery, args).
		WithArgsProperties(args).
		WithMetrics(reg).
		Build()
	if err != nil && !errors.Is(err, propcfg.ErrPropertiesNotFound) {
		return err
	}

	cbs := propcfg.LogHandlers(logger.Named("traffic"))
	if err := engine.ConfigureTypeWith(cbs, args, traffic); err != nil {
		return err
	}
	// read before the watcher and the remote surface can write concurrently
	logger.Info("traffic settings configured",
		zap.Int(maxVehiclesProp.Name(), maxVehicles),
		zap.Float64(minSpeedProp.Name(), minSpeed),
		zap.String(modeProp.Name(), mode),
		zap.Duration(signalDelayProp.Name(), signalDelay),
		zap.Bool("apiKeySet", apiKey != ""),
	)

	var watcher *propcfg.Watcher
	if path, ok := propcfg.DiscoverProperties(discovery, args, nil); ok {
		watcher, err = propcfg.WatchProperties(path, engine.Properties(), func(ctx context.Context) error {
			return engine.ConfigureType(args, traffic)
		}, propcfg.DefaultWatchOptions())
		if err != nil {
			return err
		}
		defer watcher.Stop()
		logger.Info("watching properties file", zap.String("path", path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					logger.Info("properties file event", zap.String("event", event))
				}
			}
		})
	}

	if remoteCfg.Token != "" {
		server := remote.NewServer(engine, remoteCfg,
			remote.WithLogger(logger.Named("remote")),
			remote.WithGatherer(reg))
		g.Go(func() error {
			return server.Run(ctx)
		})
	} else {
		logger.Warn("remote surface disabled, no token configured")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if snapshot := os.Getenv("PROPCFG_DEMO_SNAPSHOT"); snapshot != "" {
		if err := engine.SaveSnapshot(snapshot); err != nil {
			return err
		}
		logger.Info("snapshot saved", zap.String("path", snapshot))
	}
	return nil
}
