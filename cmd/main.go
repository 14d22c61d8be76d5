package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/handlers"
	"controlling_camera/internal/logger"
	"controlling_camera/internal/mqtt"
	"controlling_camera/internal/orchestrator"
	"controlling_camera/internal/repository"
	"controlling_camera/internal/repository/db"
	"controlling_camera/internal/server"
	"controlling_camera/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the logger picks up the configured level
	cfgErr := loadConfig()
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB)

	// camera backend and the control loop that owns it
	connector := buildConnector(log)
	orch := orchestrator.New(connector, orchestratorConfig(), log)

	// optional MQTT mirror of the update stream
	broker := openBroker(log)
	var pub service.Publisher
	if broker != nil {
		pub = broker
		defer broker.Close()
	}

	hub := service.NewHub(orch.Updates(), repos, pub, viper.GetString("mqtt.topic_prefix"), log)

	services := service.NewService(orch, hub, repos, service.AuthParams{
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   time.Duration(viper.GetInt("auth.token_ttl_minutes")) * time.Minute,
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go orch.Run(ctx)
	go hub.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "camcontrol.db")
		dbPath = "camcontrol.db"
	}
	return db.Init(dbPath)
}

// buildConnector picks the camera backend named in configuration.
// Only the simulated backend exists today; the switch is where a real
// PTP/IP connector would slot in.
func buildConnector(log *logger.Logger) camera.Connector {
	backend := viper.GetString("camera.backend")
	switch backend {
	case "", "sim":
		return camera.NewSimConnector()
	default:
		log.Fatalw("unknown camera backend", "backend", backend)
		return nil
	}
}

// orchestratorConfig reads the control-loop timing knobs from configuration.
// Zero or missing values fall back to the orchestrator defaults.
func orchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Debounce:         time.Duration(viper.GetInt("timing.debounce_ms")) * time.Millisecond,
		InFlightTimeout:  time.Duration(viper.GetInt("timing.inflight_timeout_ms")) * time.Millisecond,
		AFReleaseTimeout: time.Duration(viper.GetInt("timing.af_release_ms")) * time.Millisecond,
	}
}

// openBroker connects to the MQTT broker when one is configured. A broker
// that is configured but unreachable disables the mirror rather than
// blocking startup; the update stream still reaches websocket clients.
func openBroker(log *logger.Logger) *mqtt.Client {
	url := viper.GetString("mqtt.broker_url")
	if url == "" {
		return nil
	}
	cli, err := mqtt.New(url)
	if err != nil {
		log.Errorw("mqtt broker unreachable, update mirror disabled", "broker", url, "err", err)
		return nil
	}
	log.Infow("mqtt update mirror enabled", "broker", url)
	return cli
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the control loop and hub
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
