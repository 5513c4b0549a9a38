// Mesh Supervisor - power and mesh-radio supervisor node
//
// This is the main entry point for the supervisor daemon. The supervisor
// owns a line-delimited JSON protocol over a serial transport:
//   - Request/response commands (get_status, get_switches, clear_unread,
//     arm_poweroff, ping)
//   - Unsolicited periodic telemetry events
//   - A switch configuration event at startup
//
// Optional side channels mirror the wire traffic to MQTT, InfluxDB and a
// local SQLite history without ever touching protocol semantics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/mesh-supervisor/migrations"

	"github.com/nerrad567/mesh-supervisor/internal/bridge"
	"github.com/nerrad567/mesh-supervisor/internal/history"
	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/config"
	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/database"
	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/influxdb"
	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/logging"
	"github.com/nerrad567/mesh-supervisor/internal/infrastructure/mqtt"
	"github.com/nerrad567/mesh-supervisor/internal/supervisor"
	"github.com/nerrad567/mesh-supervisor/internal/transport/serial"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// prunePeriod is how often expired history rows are deleted.
const prunePeriod = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mesh supervisor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the wire transport
	reader, writer, closeTransport, err := openTransport(cfg.Serial)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer func() {
		log.Info("closing transport")
		if closeErr := closeTransport(); closeErr != nil {
			log.Error("error closing transport", "error", closeErr)
		}
	}()
	log.Info("transport open", "device", cfg.Serial.Device)

	// Protocol core: one status record, one clock, one writer
	clock := supervisor.NewBootClock()
	store := supervisor.NewStore(clock)
	out := supervisor.NewLineWriter(writer, log)

	framer := supervisor.NewLineFramer(reader, log)
	framer.SetPollTimeout(cfg.GetSerialPollTimeout())

	proc := supervisor.NewProcessor(store, clock, out, log)
	pub := supervisor.NewPublisher(store, clock, out, log, cfg.GetTelemetryPeriod())

	// Local history (optional)
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		if applied, pending, statusErr := db.GetMigrationStatus(ctx); statusErr == nil {
			log.Info("database migrations complete",
				"applied", len(applied),
				"pending", len(pending),
			)
		} else {
			log.Warn("could not read migration status", "error", statusErr)
		}

		repo := history.NewSQLiteRepository(db.DB)
		pub.AddSink(history.NewSink(repo, cfg.Device.NodeID, log))

		if retention := cfg.GetHistoryRetention(); retention > 0 {
			go pruneLoop(ctx, repo, retention, log)
		}
	} else {
		log.Info("local history disabled")
	}

	// MQTT bridge (optional)
	var mqttBridge *bridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected", "subscriptions", mqttClient.SubscriptionCount())
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mqttBridge = bridge.New(bridge.Options{
			Client: mqttClient,
			Store:  store,
			Log:    log,
			QoS:    byte(cfg.MQTT.QoS),
		})
		if startErr := mqttBridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		pub.AddSink(mqttBridge)
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry recording (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		pub.AddSink(influxdb.NewTelemetrySink(influxClient, cfg.Device.NodeID))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Announce the switch configuration before either loop starts, so the
	// host sees it ahead of any telemetry or reply.
	switches := store.SnapshotSwitches()
	out.WriteEnvelope(supervisor.NewSwitchEvent(switches))
	if mqttBridge != nil {
		if pubErr := mqttBridge.PublishSwitches(switches); pubErr != nil {
			log.Warn("failed to publish switch configuration", "error", pubErr)
		}
	}

	go proc.Run(ctx, framer)
	go pub.Run(ctx)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("mesh supervisor stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SUPERVISOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SUPERVISOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openTransport opens the configured wire transport.
//
// The special device value "stdio" binds the protocol to the process's
// stdin and stdout; anything else is treated as a serial device path.
//
// Returns:
//   - supervisor.ByteReader: Receive half for the line framer
//   - io.Writer: Send half for the line writer
//   - func() error: Closer for the defer chain
//   - error: If the device cannot be opened
func openTransport(cfg config.SerialConfig) (supervisor.ByteReader, io.Writer, func() error, error) {
	if cfg.Device == "stdio" {
		s := serial.NewStdio()
		return s, s, s.Close, nil
	}

	port, err := serial.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return port, port, port.Close, nil
}

// pruneLoop deletes expired history rows once per prune period until ctx
// is cancelled.
func pruneLoop(ctx context.Context, repo history.Repository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := repo.Prune(pruneCtx, retention)
			cancel()
			if err != nil {
				log.Warn("history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("history pruned", "deleted", deleted)
			}
		}
	}
}
