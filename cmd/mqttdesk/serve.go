package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqttdesk/internal/api"
	"github.com/nerrad567/mqttdesk/internal/broker"
	"github.com/nerrad567/mqttdesk/internal/connection"
	"github.com/nerrad567/mqttdesk/internal/envvar"
	"github.com/nerrad567/mqttdesk/internal/history"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/config"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/database"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/logging"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqttdesk/internal/subscription"
	"github.com/nerrad567/mqttdesk/internal/telemetry"
	"github.com/nerrad567/mqttdesk/internal/template"
	"github.com/nerrad567/mqttdesk/migrations"
)

// shutdownTimeout bounds how long serve waits for broker sessions and the
// history queue on exit.
const shutdownTimeout = 15 * time.Second

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
}

// run wires every component and blocks until ctx is cancelled.
// Teardown runs in reverse: API, sessions, history, telemetry, database.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM to begin shutdown
//   - cfg: Loaded configuration
//
// Returns:
//   - error: If any component fails to start; nil after a clean shutdown
func run(ctx context.Context, cfg *config.Config) error { //nolint:funlen // linear startup sequence
	log := logging.New(cfg.Logging, version)
	log.Info("starting mqttdesk",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	mqtt.SetLibraryLogger(log.Logger, cfg.Logging.Level == "debug")

	// Open database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path(), "migrations_applied", applied)

	// Broker definitions
	brokers, err := broker.NewStore(broker.NewSQLiteRepository(db.DB), cfg.Cache.Brokers)
	if err != nil {
		return err
	}
	brokers.SetLogger(log.Component("broker"))

	// Message history
	historyRepo := history.NewSQLiteRepository(db.DB, cfg.History.MaxPageSize)
	recorder := history.NewRecorder(historyRepo, history.RecorderConfig{
		QueueSize: cfg.History.QueueSize,
		Retention: time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
	})
	recorder.SetLogger(log.Component("history"))
	if err := recorder.Start(); err != nil {
		return fmt.Errorf("starting history recorder: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := recorder.Close(closeCtx); closeErr != nil {
			log.Error("error closing history recorder", "error", closeErr)
		}
		if dropped := recorder.Dropped(); dropped > 0 {
			log.Warn("history entries dropped", "count", dropped)
		}
	}()

	// Saved subscriptions; the session manager is attached once it exists.
	restorer := subscription.NewRestorer(subscription.NewSQLiteRepository(db.DB), nil)
	restorer.SetLogger(log.Component("subscription"))

	// Publish templates and the variables expanded into them
	templates := template.NewLibrary(template.NewSQLiteRepository(db.DB))
	templates.SetLogger(log.Component("template"))
	variables := envvar.NewSQLiteRepository(db.DB)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	sinks := []connection.Sink{hub, recorder, restorer}

	// Connect to InfluxDB (optional)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, telemetry.NewSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	sink := connection.NewMultiSink(sinks...)
	sink.SetLogger(log.Component("sink"))

	// Broker sessions
	sessionLog := log.Component("connection")
	manager := connection.NewManager(connection.NewRegistry(), sink, connection.PahoEngine(sessionLog), connection.Settings{
		ConnectTimeout:    cfg.GetConnectTimeout(),
		DisconnectQuiesce: time.Duration(cfg.MQTT.DisconnectQuiesce) * time.Millisecond,
		EventBuffer:       cfg.MQTT.EventBuffer,
		ClientIDPrefix:    cfg.MQTT.ClientIDPrefix,
	})
	manager.SetLogger(sessionLog)
	restorer.SetSubscriber(manager)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("stopping broker sessions", "active", len(manager.Connected()))
		if shutdownErr := manager.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("error stopping broker sessions", "error", shutdownErr)
		}
		restorer.Wait()
	}()

	// API server
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Security:      cfg.Security,
		Logger:        log.Component("api"),
		Brokers:       brokers,
		Sessions:      manager,
		Subscriptions: restorer,
		Templates:     templates,
		Variables:     variables,
		Messages:      historyRepo,
		Recorder:      recorder,
		Database:      db,
		Hub:           hub,
		Version:       version,
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

	if cfg.AuthEnabled() {
		log.Info("API authentication enabled")
	} else {
		log.Warn("API authentication disabled; keep api.host on loopback")
	}
	log.Info("mqttdesk started", "address", server.Addr().String())

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}
