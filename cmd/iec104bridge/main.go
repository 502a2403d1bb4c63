// Gray Logic IEC 104 Bridge
//
// Forwards substation point values acquired from IEC 61850 style sources
// (MQTT telemetry or OPC UA) to "<id>_iec104" channels that publish to the
// site's IEC 60870-5-104 gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/acquisition/mqttsource"
	"github.com/nerrad567/gray-logic-iec104/internal/acquisition/opcuasource"
	"github.com/nerrad567/gray-logic-iec104/internal/api"
	"github.com/nerrad567/gray-logic-iec104/internal/audit"
	"github.com/nerrad567/gray-logic-iec104/internal/bridges/iec104"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iec104/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/iec104bridge.yaml"

	metricsReadHeaderTimeout = 5 * time.Second
	shutdownTimeout          = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the bridge and blocks until ctx is cancelled. Deferred calls
// tear everything down in reverse order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting "+iec104.AppName,
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"site", cfg.Site.ID,
		"channels", len(cfg.Channels),
	)

	var auditRecorder iec104.AuditRecorder
	var forwardLog api.ForwardLog
	if cfg.Bridge.Audit.Enabled {
		recorder, repo, closeAudit, err := openAudit(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeAudit()
		auditRecorder = recorder
		forwardLog = repo
	} else {
		log.Info("forward log disabled")
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var points iec104.PointWriter
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		points = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// The registry is dedicated so tests and restarts never collide with
	// prometheus.DefaultRegisterer.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := iec104.NewMetrics(registry)
	if err != nil {
		return err
	}

	outbound, err := iec104.NewOutbound(iec104.OutboundOptions{
		Publisher: mqttClient,
		Points:    points,
		Addresses: addresses(cfg.Channels),
		QoS:       byte(cfg.Bridge.PointQoS), // #nosec G115 -- validated 0..2
	})
	if err != nil {
		return fmt.Errorf("creating outbound sink: %w", err)
	}

	service := acquisition.NewService()
	service.SetLogger(log.Component("acquisition"))
	if err := registerChannels(service, cfg.Channels, outbound); err != nil {
		return err
	}
	log.Info("channels registered", "count", service.Count())

	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics, registry, log)
		defer stopMetrics()
	}

	app, err := iec104.NewApp(iec104.AppOptions{
		Sources:   service,
		Directory: service,
		SourceIDs: cfg.Bridge.Sources,
		Suffix:    cfg.Bridge.TargetSuffix,
		Logger:    log.Component("iec104"),
		Metrics:   metrics,
		Audit:     auditRecorder,
	})
	if err != nil {
		return fmt.Errorf("creating IEC 104 bridge: %w", err)
	}
	app.Activate()
	defer app.Deactivate()

	stopSources, err := startSources(ctx, cfg, service, mqttClient, log)
	if err != nil {
		return err
	}
	defer stopSources()

	reporter := iec104.NewHealthReporter(iec104.HealthReporterConfig{
		BridgeID:  cfg.Bridge.ID,
		Version:   version,
		Interval:  cfg.HealthInterval(),
		Publisher: mqttClient,
		Status:    app,
		QoS:       byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0..2
	})
	reporter.SetLogger(log.Component("health"))
	if err := reporter.PublishStarting(); err != nil {
		log.Warn("failed to publish starting status", "error", err)
	}
	reporter.Start(ctx)
	defer reporter.Stop()

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.Component("api"),
			Channels:   service,
			Status:     app,
			ForwardLog: forwardLog,
			MQTT:       mqttClient,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if err := reporter.PublishNow(); err != nil {
			log.Warn("failed to publish health after reconnect", "error", err)
		}
	})

	log.Info("initialisation complete, waiting for shutdown signal",
		"sources_wired", app.WiredSources(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// openAudit opens the database, applies migrations and starts the forward
// log recorder. The repository is returned for the API's read side. The
// returned func stops the recorder then closes the database.
func openAudit(ctx context.Context, cfg *config.Config, log *logging.Logger) (*audit.Recorder, *audit.SQLiteRepository, func(), error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", len(applied))

	repo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(repo, cfg.Bridge.Audit.QueueSize, log.Component("audit"))
	recorder.Start()

	return recorder, repo, func() {
		recorder.Stop()
		if dropped := recorder.Dropped(); dropped > 0 {
			log.Warn("forward log entries dropped", "count", dropped)
		}
		log.Info("closing database")
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}, nil
}

// getConfigPath returns GRAYLOGIC_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// addresses collects the IOA of every IEC 104 target channel.
func addresses(channels []config.ChannelConfig) map[string]int {
	out := make(map[string]int)
	for _, ch := range channels {
		if ch.IOA > 0 {
			out[ch.ID] = ch.IOA
		}
	}
	return out
}

// registerChannels registers every configured channel. Channels with an
// IOA become writable through sink; all others are read-only sources.
func registerChannels(service *acquisition.Service, channels []config.ChannelConfig, sink acquisition.Sink) error {
	for _, ch := range channels {
		kind, err := ch.Kind()
		if err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID, err)
		}

		spec := acquisition.ChannelSpec{ID: ch.ID, Kind: kind}
		if ch.IOA > 0 {
			spec.Sink = sink
		}
		if _, err := service.Register(spec); err != nil {
			return fmt.Errorf("registering channel %s: %w", ch.ID, err)
		}
	}
	return nil
}

// startSources starts the MQTT telemetry driver and, when enabled, the OPC UA
// driver. The returned func stops both.
func startSources(ctx context.Context, cfg *config.Config, service *acquisition.Service, sub mqttsource.Subscriber, log *logging.Logger) (func(), error) {
	var topicBindings []mqttsource.Binding
	var nodeBindings []opcuasource.Binding
	for _, ch := range cfg.Channels {
		switch {
		case ch.Topic != "":
			topicBindings = append(topicBindings, mqttsource.Binding{ChannelID: ch.ID, Topic: ch.Topic})
		case ch.NodeID != "":
			nodeBindings = append(nodeBindings, opcuasource.Binding{ChannelID: ch.ID, NodeID: ch.NodeID})
		}
	}

	telemetry := mqttsource.New(sub, service, topicBindings, byte(cfg.MQTT.QoS), log.Component("mqttsource")) // #nosec G115 -- validated 0..2
	if err := telemetry.Start(); err != nil {
		return nil, fmt.Errorf("starting MQTT telemetry: %w", err)
	}
	log.Info("MQTT telemetry started", "topics", len(telemetry.Topics()))

	if !cfg.OPCUA.Enabled || len(nodeBindings) == 0 {
		return telemetry.Stop, nil
	}

	driver, err := opcuasource.New(cfg.OPCUA, service, nodeBindings, log.Component("opcuasource"))
	if err != nil {
		telemetry.Stop()
		return nil, fmt.Errorf("creating OPC UA source: %w", err)
	}
	if err := driver.Start(ctx); err != nil {
		telemetry.Stop()
		return nil, fmt.Errorf("starting OPC UA source: %w", err)
	}
	log.Info("OPC UA source started", "endpoint", cfg.OPCUA.Endpoint, "nodes", len(nodeBindings))

	return func() {
		if err := driver.Stop(); err != nil {
			log.Warn("error stopping OPC UA source", "error", err)
		}
		telemetry.Stop()
	}, nil
}

// serveMetrics exposes registry on cfg.Listen and returns a shutdown func.
func serveMetrics(cfg config.MetricsConfig, registry *prometheus.Registry, log *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("metrics server started", "listen", cfg.Listen, "path", cfg.Path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("error stopping metrics server", "error", err)
		}
	}
}
