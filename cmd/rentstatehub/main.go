// RentState Hub - IoT intermediary for rental properties
//
// This is the main entry point for the RentState Hub service. The hub sits
// between IoT devices installed in rental properties, the RentState mobile
// app, and the real RentState backend servers:
//   - Device registry with liveness monitoring and lost-device alerts
//   - Session cache that shields the real servers from repeated logins
//   - Device/user/property linking owned entirely by this service
//   - Notification queue dispatched over email and WhatsApp
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/antarticdonkeys/rentstate-hub/migrations"

	"github.com/antarticdonkeys/rentstate-hub/internal/api"
	"github.com/antarticdonkeys/rentstate-hub/internal/device"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/config"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/database"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/influxdb"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/logging"
	"github.com/antarticdonkeys/rentstate-hub/internal/infrastructure/mqtt"
	"github.com/antarticdonkeys/rentstate-hub/internal/ingest"
	"github.com/antarticdonkeys/rentstate-hub/internal/notify"
	"github.com/antarticdonkeys/rentstate-hub/internal/upstream"
	"github.com/antarticdonkeys/rentstate-hub/internal/user"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting RentState Hub",
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

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Notification queue feeds the dispatcher; the registry and the liveness
	// monitor both enqueue into it.
	queue := notify.NewQueue()

	// Initialise device registry
	registry := device.NewRegistry(device.NewSQLiteStore(db.DB), queue)
	registry.SetLogger(log)
	registry.SetLivenessThreshold(cfg.Liveness.Threshold)

	catalog, err := device.LoadCatalog(cfg.Devices.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading device catalog: %w", err)
	}
	registry.SetCatalog(catalog)

	if loadErr := registry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading device registry: %w", loadErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	// Connect to InfluxDB (optional) and wire it as the telemetry sink
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		registry.SetTelemetry(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Upstream clients for the real RentState servers
	upstreamClient := upstream.New(upstream.Config{
		AuthURL:       cfg.Upstream.AuthURL,
		UsersURL:      cfg.Upstream.UsersURL,
		PropertiesURL: cfg.Upstream.PropertiesURL,
		Timeout:       cfg.GetUpstreamTimeout(),
	})

	// Initialise user session cache
	users, err := user.NewCache(user.Deps{
		Store:      user.NewSQLiteStore(db.DB),
		Registry:   registry,
		Auth:       upstreamClient,
		Profiles:   upstreamClient,
		Properties: upstreamClient,
		CacheTTL:   cfg.GetCacheTTL(),
	})
	if err != nil {
		return fmt.Errorf("creating user cache: %w", err)
	}
	users.SetLogger(log)

	if loadErr := users.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading user cache: %w", loadErr)
	}
	log.Info("user cache initialised", "users", users.Count())

	// Start the liveness monitor
	monitor := device.NewMonitor(registry, cfg.GetLivenessInterval())
	monitor.SetLogger(log)
	monitor.Start(ctx)
	defer func() {
		log.Info("stopping liveness monitor")
		monitor.Close()
	}()
	log.Info("liveness monitor started",
		"interval", cfg.GetLivenessInterval(),
		"threshold", cfg.Liveness.Threshold,
	)

	// Start the notification dispatcher. Senders without configuration are
	// left nil and their channel is skipped.
	var emailSender notify.EmailSender
	if cfg.Notifier.SMTP.Host != "" {
		emailSender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:     cfg.Notifier.SMTP.From,
			Subject:  cfg.Notifier.SMTP.Subject,
		})
	}
	var phoneSender notify.PhoneMessenger
	if cfg.Notifier.Whatsapp.URL != "" {
		phoneSender = notify.NewWhatsappSender(notify.WhatsappConfig{
			URL:   cfg.Notifier.Whatsapp.URL,
			Token: cfg.Notifier.Whatsapp.Token,
		})
	}

	dispatcher := notify.NewDispatcher(queue, users, emailSender, phoneSender, cfg.GetNotifierInterval())
	dispatcher.SetLogger(log)
	dispatcher.Start(ctx)
	defer func() {
		log.Info("stopping notification dispatcher")
		dispatcher.Close()
	}()
	log.Info("notification dispatcher started",
		"interval", cfg.GetNotifierInterval(),
		"email", emailSender != nil,
		"whatsapp", phoneSender != nil,
	)

	// Connect to MQTT broker and start the message ingest bridge (optional)
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := ingest.NewBridge(registry, mqttClient, byte(cfg.MQTT.QoS))
		if bridgeErr != nil {
			return fmt.Errorf("creating ingest bridge: %w", bridgeErr)
		}
		bridge.SetLogger(log)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting ingest bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingest bridge")
			if closeErr := bridge.Close(); closeErr != nil {
				log.Error("error closing ingest bridge", "error", closeErr)
			}
		}()
		log.Info("ingest bridge subscribed", "topic", mqtt.Topics{}.AllDeviceMessages())
	} else {
		log.Info("MQTT disabled")
	}

	// Start HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Registry: registry,
		Users:    users,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, ingest
	// bridge, MQTT, dispatcher, monitor, InfluxDB, database.

	log.Info("RentState Hub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RENTSTATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RENTSTATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional clients may be nil and are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
