// sensord - Phone Sensor Streaming Server
//
// This is the main entry point for the sensord daemon. sensord exposes a
// device's sensor capabilities over WebSocket:
//   - Per-capability streams with reference-counted hardware subscriptions
//   - Coordinated periodic wifi/bluetooth scan cycles
//   - Location streaming with last-known-fix re-push
//   - Touch events broadcast to every open connection
//
// Optional integrations: MQTT event egress, InfluxDB telemetry, and mDNS
// service advertisement.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/sensord/internal/api"
	"github.com/nerrad567/sensord/internal/capability/sim"
	"github.com/nerrad567/sensord/internal/discovery"
	"github.com/nerrad567/sensord/internal/infrastructure/config"
	"github.com/nerrad567/sensord/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensord/internal/infrastructure/logging"
	"github.com/nerrad567/sensord/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensord/internal/location"
	"github.com/nerrad567/sensord/internal/scan"
	"github.com/nerrad567/sensord/internal/stream"
	"github.com/nerrad567/sensord/internal/touch"
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

// connectionSampleInterval is how often the open connection count is
// written to telemetry (when InfluxDB is enabled).
const connectionSampleInterval = 30 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
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
	log.Info("starting sensord",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	cfg, err := loadConfig(log)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Initialise the sensor driver. The simulated driver stands in for
	// platform bindings and exposes the full capability surface.
	driver := sim.New()
	log.Info("sensor driver initialised", "capabilities", len(driver.List()))

	// Connect to the MQTT broker (optional event egress)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)
	} else {
		log.Info("MQTT egress disabled")
	}

	// Connect to InfluxDB (optional telemetry)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	// Assemble the streaming core. The registry is created without an
	// activator because the activator needs the dispatcher, which needs
	// the registry; SetActivator closes the cycle before any client can
	// attach.
	registry := stream.NewRegistry(nil)
	registry.SetLogger(log)

	dispOpts := []stream.DispatcherOption{}
	if mqttClient != nil {
		dispOpts = append(dispOpts, stream.WithSink(mqttClient))
	}
	if influxClient != nil {
		dispOpts = append(dispOpts, stream.WithMetrics(influxClient))
	}
	dispatcher := stream.NewDispatcher(registry, log, dispOpts...)

	scanOpts := []scan.Option{scan.WithLogger(log)}
	if influxClient != nil {
		scanOpts = append(scanOpts, scan.WithMetrics(influxClient))
	}
	scans := scan.New(driver, dispatcher, cfg.GetScanInterval(), scanOpts...)

	locations := location.New(
		driver.Location(),
		dispatcher,
		cfg.GetLocationPollInterval(),
		location.WithLogger(log),
	)

	registry.SetActivator(api.NewActivator(driver, scans, locations, dispatcher))

	// Start the dispatch loop
	go dispatcher.Run(ctx)

	// Touch events bypass the demand model: the relay runs for the whole
	// server lifetime and broadcasts to every open connection.
	relay := touch.New(driver.Touch(), dispatcher, touch.WithLogger(log))
	relay.Start()
	defer func() {
		log.Info("stopping touch relay")
		relay.Stop()
	}()

	// Start the WebSocket API server
	srv, err := api.New(api.Deps{
		Config:   cfg,
		Logger:   log,
		Source:   driver,
		Registry: registry,
		Location: locations,
		Scans:    scans,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "addr", srv.Addr())

	// Advertise the service over mDNS (optional)
	if cfg.Discovery.Enabled {
		advertiser := discovery.NewAdvertiser(cfg.Discovery, version)
		if advErr := advertiser.Start(cfg.Server.Port, len(driver.List())); advErr != nil {
			// Advertisement is a convenience; the server is still
			// reachable by address.
			log.Warn("mDNS advertisement failed", "error", advErr)
		} else {
			defer func() {
				log.Info("withdrawing mDNS advertisement")
				advertiser.Stop()
			}()
			log.Info("mDNS advertisement started",
				"instance", cfg.Discovery.Instance,
				"service", discovery.ServiceType,
			)
		}
	}

	// Sample the open connection count into telemetry
	if influxClient != nil {
		go sampleConnections(ctx, srv, influxClient)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// SIGHUP disconnects all clients without stopping the server. Useful
	// when the host app needs to reclaim the sensors (e.g. foreground use).
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received, cleaning up")

			// Deferred calls run in reverse order:
			// 1. mDNS advertisement (if enabled)
			// 2. API server (disconnects clients, stops scan cycles)
			// 3. Touch relay
			// 4. InfluxDB (if enabled)
			// 5. MQTT (if enabled)

			log.Info("sensord stopped")
			return nil

		case <-hup:
			log.Info("SIGHUP received, disconnecting all clients")
			srv.DisconnectClients("host requested disconnect")
		}
	}
}

// loadConfig loads the configuration file, falling back to defaults when
// no file exists so the daemon runs with zero configuration.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := getConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info("no config file found, using defaults", "path", path)
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "path", path)
	return cfg, nil
}

// getConfigPath returns the configuration file path.
// Uses SENSORD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENSORD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// sampleConnections periodically writes the open connection count to
// telemetry until the context is cancelled.
func sampleConnections(ctx context.Context, srv *api.Server, influxClient *influxdb.Client) {
	ticker := time.NewTicker(connectionSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			influxClient.WriteConnectionCount(srv.ClientCount())
		}
	}
}
