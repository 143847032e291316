package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/cotbridge/internal/api"
	"github.com/nerrad567/cotbridge/internal/audit"
	"github.com/nerrad567/cotbridge/internal/control"
	"github.com/nerrad567/cotbridge/internal/handler"
	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
	"github.com/nerrad567/cotbridge/internal/infrastructure/database"
	"github.com/nerrad567/cotbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/cotbridge/internal/infrastructure/logging"
	"github.com/nerrad567/cotbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/cotbridge/internal/infrastructure/natsbus"
	"github.com/nerrad567/cotbridge/internal/listener"
	"github.com/nerrad567/cotbridge/internal/symbol"
)

// bridge holds the listener registry, the enricher and every sink opened
// from the config. Sinks register a closer as they open; shutdown runs
// them newest first, so listeners stop before the sinks they feed.
type bridge struct {
	cfg *config.Config
	log *logging.Logger

	metrics   *prometheus.Registry
	symbols   *symbol.Symbolizer
	registry  *listener.Registry
	enricher  *handler.Enricher
	observers listener.Observers
	checks    map[string]api.HealthChecker
	auditRepo audit.Repository

	closers []closer
}

type closer struct {
	name  string
	close func() error
}

func newBridge(cfg *config.Config, log *logging.Logger) *bridge {
	b := &bridge{
		cfg:     cfg,
		log:     log,
		metrics: prometheus.NewRegistry(),
		symbols: symbol.New(nil),
		checks:  make(map[string]api.HealthChecker),
	}
	b.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	log.Info("type catalog loaded", "entries", b.symbols.Catalog().Len())

	b.registry = listener.NewRegistry()
	b.registry.SetLogger(log.Component("listener"))
	b.registry.SetMetrics(listener.NewMetrics(b.metrics))

	b.enricher = handler.NewEnricher(b.symbols, cfg.Output.JSONIndent)
	b.enricher.SetLogger(log.Component("handler"))
	b.registry.SetHandler(b.enricher)
	return b
}

// openSinks opens each enabled sink in turn, then installs the collected
// observers on the registry. Nothing is listening yet.
func (b *bridge) openSinks(ctx context.Context) error {
	sinks := []struct {
		name    string
		enabled bool
		open    func(context.Context) error
	}{
		{"database", b.cfg.Database.Enabled, b.openAudit},
		{"mqtt", b.cfg.MQTT.Enabled, b.openMQTT},
		{"nats", b.cfg.NATS.Enabled, b.openNATS},
		{"influxdb", b.cfg.InfluxDB.Enabled, b.openInflux},
		{"api", b.cfg.API.Enabled, b.openAPI},
	}
	for _, s := range sinks {
		if !s.enabled {
			b.log.Info("sink disabled", "sink", s.name)
			continue
		}
		if err := s.open(ctx); err != nil {
			return fmt.Errorf("opening %s: %w", s.name, err)
		}
	}
	b.registry.SetObserver(b.observers)
	return nil
}

func (b *bridge) onShutdown(name string, fn func() error) {
	b.closers = append(b.closers, closer{name: name, close: fn})
}

func (b *bridge) shutdown() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		c := b.closers[i]
		if err := c.close(); err != nil {
			b.log.Error("shutdown step failed", "step", c.name, "error", err)
			continue
		}
		b.log.Info("stopped", "step", c.name)
	}
	b.closers = nil
}

func (b *bridge) openAudit(ctx context.Context) error {
	db, err := database.OpenConfig(ctx, b.cfg.Database)
	if err != nil {
		return err
	}
	b.onShutdown("database", db.Close)

	schema, _ := db.SchemaVersion(ctx) //nolint:errcheck // informational only
	b.log.Info("audit database ready", "path", db.Path(), "schema_version", schema)

	repo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(repo)
	recorder.SetLogger(b.log.Component("audit"))

	b.auditRepo = repo
	b.observers = append(b.observers, recorder)
	b.checks["database"] = db
	return nil
}

func (b *bridge) openMQTT(context.Context) error {
	cfg := b.cfg.MQTT
	log := b.log.Component("mqtt")

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return err
	}
	b.onShutdown("mqtt", client.Close)

	client.SetLogger(log)
	client.SetOnConnect(func() { log.Info("MQTT session up") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT session lost", "error", err) })
	log.Info("MQTT connected",
		"broker", net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port)),
		"client_id", cfg.Broker.ClientID,
		"topic_prefix", client.Topics().Prefix(),
	)

	b.enricher.AddPublisher(handler.NewMQTTPublisher(client))
	status := handler.NewStatusPublisher(client)
	status.SetLogger(log)
	b.observers = append(b.observers, status)
	b.checks["mqtt"] = client

	if cfg.Commands {
		if err := control.Listen(client, b.registry, b.log.Component("control")); err != nil {
			return fmt.Errorf("subscribing to listener commands: %w", err)
		}
	}
	return nil
}

func (b *bridge) openNATS(context.Context) error {
	client, err := natsbus.Connect(b.cfg.NATS, b.log.Component("nats"))
	if err != nil {
		return err
	}
	b.onShutdown("nats", client.Close)
	b.log.Info("NATS connected", "url", b.cfg.NATS.URL, "subject_prefix", b.cfg.NATS.SubjectPrefix)

	b.enricher.AddPublisher(handler.NewNATSPublisher(client))
	b.checks["nats"] = client
	return nil
}

func (b *bridge) openInflux(context.Context) error {
	cfg := b.cfg.InfluxDB
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return err
	}
	b.onShutdown("influxdb", client.Close)

	log := b.log.Component("influxdb")
	client.SetOnError(func(err error) { log.Error("point write failed", "error", err) })
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)

	telemetry := handler.NewTelemetry(client)
	b.enricher.AddRecorder(telemetry)
	b.observers = append(b.observers, telemetry)
	b.checks["influxdb"] = client
	return nil
}

func (b *bridge) openAPI(ctx context.Context) error {
	srv, err := api.New(api.Deps{
		Config:     b.cfg.API,
		WS:         b.cfg.WebSocket,
		Logger:     b.log.Component("api"),
		Registry:   b.registry,
		Symbolizer: b.symbols,
		AuditRepo:  b.auditRepo,
		Gatherer:   b.metrics,
		Checks:     b.checks,
		Indent:     b.cfg.Output.JSONIndent,
		Version:    version,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	b.onShutdown("api", srv.Close)

	b.enricher.AddPublisher(handler.NewHubPublisher(srv.Hub()))
	b.observers = append(b.observers, srv.Hub())
	return nil
}
