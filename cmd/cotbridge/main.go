// Command cotbridge receives Cursor-on-Target events on UDP and TCP
// listeners, adds the MIL-STD-2525B symbol code and description for each
// event type, and republishes the result as JSON to MQTT, NATS, websocket
// clients and InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/cotbridge/migrations"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
	"github.com/nerrad567/cotbridge/internal/infrastructure/logging"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logging.Default().Error("cotbridge stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// run wires the bridge from the config file and blocks until ctx ends.
func run(ctx context.Context) error {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting cotbridge",
		"commit", commit,
		"build_date", date,
		"config", path,
		"service_id", cfg.Service.ID,
	)

	b := newBridge(cfg, log)
	defer b.shutdown()

	if err := b.openSinks(ctx); err != nil {
		return err
	}

	registerListeners(b.registry, cfg.Listeners)
	b.onShutdown("listeners", func() error {
		b.registry.StopAll()
		return nil
	})

	log.Info("cotbridge running", "listeners", len(b.registry.ListPorts()))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// configPath is $COTBRIDGE_CONFIG, or defaultConfigPath when unset.
func configPath() string {
	if p := os.Getenv("COTBRIDGE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// registerListeners adds each configured listener and starts the ones
// marked autostart. A listener that fails to bind is logged and dropped by
// the registry; the rest keep running.
func registerListeners(registry *listener.Registry, listeners []config.ListenerConfig) {
	for _, lc := range listeners {
		protocol, err := listener.ParseProtocol(lc.Protocol)
		if err != nil {
			continue // rejected by config.Validate
		}
		registry.AddListener(lc.Port, protocol, listener.Options{
			BindAddress: lc.Bind,
			PacketSize:  lc.PacketSize,
			Debug:       lc.Debug,
		})
		if lc.ShouldAutostart() {
			registry.StartListener(lc.Port)
		}
	}
}
