// Aquarium Core - tank automation daemon.
//
// One binary runs any combination of the control loops (pump controller,
// lamp controller, coordinator) against a shared MQTT broker, together with
// the event history, optional InfluxDB telemetry and the HTTP API. Which
// loops run is chosen in the control section of the configuration, so the
// same binary can be deployed once per loop or once for the whole tank.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/aquarium-core/migrations"

	"github.com/nerrad567/aquarium-core/internal/actuator"
	"github.com/nerrad567/aquarium-core/internal/api"
	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/coordinator"
	"github.com/nerrad567/aquarium-core/internal/history"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/database"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/logging"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/mqtt"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "aquarium"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled or a loop
// fails. Deferred closes run in reverse order of opening.
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting aquarium core", "version", version, "commit", commit, "build_date", date)

	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err = logging.New(cfg.Logging, serviceName, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close() //nolint:errcheck // Nothing useful to do at exit
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	reg := metrics.NewRegistry()
	checks := make(map[string]api.HealthChecker)

	// History database
	var (
		db     *database.DB
		events *history.SQLiteLog
	)
	if cfg.History.Enabled {
		db, err = database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		events = history.NewSQLiteLog(db.DB)
		events.SetLogger(log.With("component", "history"))
		events.SetMetrics(reg)
		checks["database"] = db
	}

	// Telemetry
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Broker
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	checks["mqtt"] = mqttClient
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttBus := bus.NewMQTTBus(mqttClient, byte(cfg.MQTT.QoS))
	mqttBus.SetLogger(log.With("component", "bus"))

	// Control loops are attached before any of them starts, so a failed
	// subscription cannot leave a loop running unsupervised.
	var (
		loops []func(context.Context) error
		coord *coordinator.Coordinator
	)
	if cfg.Control.Coordinator {
		coord = coordinator.New(mqttBus, buildSink(events, influxClient))
		coord.SetLogger(log.With("component", "coordinator"))
		coord.SetMetrics(reg)
		if err := coord.Attach(mqttBus); err != nil {
			return err
		}
		loops = append(loops, coord.Run)
	}

	for _, c := range enabledControllers(cfg, mqttBus) {
		c.SetLogger(log.With("component", "actuator", "device", c.Device()))
		c.SetMetrics(reg)
		if err := c.Attach(mqttBus); err != nil {
			return fmt.Errorf("attaching %s controller: %w", c.Device(), err)
		}
		loops = append(loops, c.Run)
	}

	if events != nil && cfg.History.Retention > 0 && cfg.History.PruneInterval > 0 {
		loops = append(loops, func(ctx context.Context) error {
			return events.RunPruner(ctx, cfg.History.Retention, cfg.History.PruneInterval)
		})
	}

	// HTTP API
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.With("component", "api"),
			Bus:     mqttBus,
			Metrics: reg,
			Checks:  checks,
			Version: version,
		}
		if coord != nil {
			deps.Devices = coord
		}
		if events != nil {
			deps.History = events
		}
		if db != nil {
			deps.DB = db
		}

		server, err := api.New(deps)
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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})
	for _, loop := range loops {
		loop := loop
		g.Go(func() error { return loop(gctx) })
	}

	log.Info("initialisation complete",
		"pump", cfg.Control.Pump,
		"lamp", cfg.Control.Lamp,
		"coordinator", cfg.Control.Coordinator,
		"api", cfg.API.Enabled,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("aquarium core stopped")
	return nil
}

// enabledControllers builds the actuator controllers selected by cfg.
func enabledControllers(cfg *config.Config, pub bus.Publisher) []*actuator.Controller {
	var out []*actuator.Controller
	if cfg.Control.Pump {
		out = append(out, actuator.NewPump(pub, cfg.Control.TickInterval))
	}
	if cfg.Control.Lamp {
		out = append(out, actuator.NewLamp(pub, cfg.Control.TickInterval))
	}
	return out
}

// buildSink combines the configured history backends. Nil backends are
// skipped; with none configured the coordinator records nothing.
func buildSink(events *history.SQLiteLog, influx *influxdb.Client) history.Sink {
	var sinks history.MultiSink
	if events != nil {
		sinks = append(sinks, events)
	}
	if influx != nil {
		sinks = append(sinks, history.NewTelemetrySink(influx))
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}
