package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"statetree/pkg/config"
	"statetree/pkg/land"
	"statetree/pkg/landdemo"
	"statetree/pkg/persistence"
	"statetree/pkg/realm"
	"statetree/pkg/replay"
	"statetree/pkg/server"
	"statetree/pkg/wireproto"
	"statetree/pkg/wsgateway"
)

func main() {
	cfg := loadAndConfigureSystem()

	app := buildApplication(cfg)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start listener")
	}

	executeServerLifecycle(app, listener)
}

// application bundles every collaborator wired together for one running
// StateTree process: the Land registry, the websocket front-end, and the
// ambient operational surface (health, metrics, rate limiting).
type application struct {
	cfg       *config.Config
	manager   *realm.Manager
	gateway   *wsgateway.Gateway
	metrics   *server.Metrics
	health    *server.HealthChecker
	rateLimit *server.RateLimiter
	mux       *http.ServeMux
	done      chan struct{}
}

// buildServices constructs the land.Services bag every Keeper is built
// with. Today it carries a single collaborator, the leaderboard persister
// landdemo's Tick handler reaches through ctx.Services() — a file-system
// write protected by pkg/integration's circuit-breaker + retry executor
// rather than a direct, unprotected os.WriteFile call. A failure to build
// the FileStore disables periodic persistence rather than failing startup:
// the leaderboard is a convenience snapshot, not state the runtime depends
// on to serve a Land.
func buildServices(cfg *config.Config) land.Services {
	store, err := persistence.NewFileStore(cfg.DataDir)
	if err != nil {
		logrus.WithError(err).Warn("failed to create data dir FileStore; leaderboard persistence disabled")
		return land.Services{}
	}
	return land.Services{
		landdemo.ServiceLeaderboardPersister: landdemo.NewLeaderboardPersister(store, "cookieclicker-leaderboard.yaml"),
	}
}

// buildApplication wires the registry, gateway, and every registered Land
// definition into a single HTTP mux. A realm.Manager pins its land.Transport
// at construction, and that Transport is the wsgateway.Gateway that needs a
// Manager reference back — so the Gateway is built first and the Manager is
// wired into it with Gateway.SetManager once both exist.
func buildApplication(cfg *config.Config) *application {
	metrics := server.NewMetrics()
	done := make(chan struct{})

	gw := wsgateway.New(wsgateway.Config{
		Cfg:     cfg,
		Router:  wireproto.NewRouter(),
		Metrics: metrics,
	})

	managerCfg := realm.ManagerConfig{
		Config:    cfg,
		Services:  buildServices(cfg),
		Transport: gw,
		Logger:    logrus.WithField("component", "realm.Manager"),
	}
	if cfg.EnableReevaluationRecording {
		managerCfg.RecorderFactory = replay.NewRecorderFactory(replay.FactoryConfig{
			BaseDir: cfg.ReevaluationRecordsDir,
			DefinitionIDs: map[string]string{
				landdemo.LandType: landdemo.LandDefinitionID,
			},
			Logger: logrus.WithField("component", "replay.RecorderFactory"),
		})
	}

	manager := realm.NewManager(managerCfg)
	gw.SetManager(manager)

	if err := manager.Register(landdemo.Definition()); err != nil {
		logrus.WithError(err).Fatal("Failed to register land definition")
	}

	if cfg.LandSchemaPath != "" {
		schema, err := config.LoadLandSchema(cfg.LandSchemaPath)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load land schema")
		}
		schemaDef, err := config.SchemaDefinition(schema)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to build schema-driven land definition")
		}
		if err := manager.Register(schemaDef); err != nil {
			logrus.WithError(err).Fatal("Failed to register schema-driven land definition")
		}
	}

	rateLimiter := server.NewRateLimiter(cfg)

	health := server.NewHealthChecker(server.HealthDeps{
		Realm:   manager,
		Config:  cfg,
		Metrics: metrics,
		Done:    done,
	})

	app := &application{
		cfg:       cfg,
		manager:   manager,
		gateway:   gw,
		metrics:   metrics,
		health:    health,
		rateLimit: rateLimiter,
		done:      done,
	}
	app.mux = app.buildMux()
	return app
}

// buildMux assembles the HTTP routing table and, when profiling is enabled,
// starts the separate profiling listener. The middleware chain is added
// around the mux by wrapHandler.
func (a *application) buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", a.gateway.HandleUpgrade)
	mux.HandleFunc("/health", a.health.HealthHandler)
	mux.HandleFunc("/ready", a.health.ReadinessHandler)
	mux.HandleFunc("/live", a.health.LivenessHandler)
	mux.Handle("/metrics", a.metrics.GetHandler())

	if a.cfg.EnableProfiling {
		profiling := server.NewProfilingServer(server.ProfilingConfig{Enabled: true, Path: "/debug/pprof"})
		go func() {
			if err := profiling.StartProfiling(fmt.Sprintf(":%d", a.cfg.ProfilingPort)); err != nil {
				logrus.WithError(err).Warn("profiling server exited")
			}
		}()
	}

	return mux
}

// wrapHandler chains the ambient middleware around the routing mux. From
// outermost to innermost: request ID, logging, recovery, metrics, rate
// limiting (when enabled), CORS, then the mux.
func (a *application) wrapHandler() http.Handler {
	var handler http.Handler = a.mux
	handler = server.CORSMiddleware(a.cfg.AllowedOrigins)(handler)
	if a.cfg.RateLimitEnabled {
		handler = server.RateLimitingMiddleware(a.rateLimit)(handler)
	}
	handler = a.metrics.MetricsMiddleware(handler)
	handler = server.RecoveryMiddleware(handler)
	handler = server.LoggingMiddleware(handler)
	handler = server.RequestIDMiddleware(handler)
	return handler
}

// loadAndConfigureSystem loads configuration and sets up logging.
func loadAndConfigureSystem() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg.LogLevel)
	logStartupInfo(cfg)
	return cfg
}

// configureLogging sets up the logging system based on configuration.
func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// logStartupInfo logs server startup information.
func logStartupInfo(cfg *config.Config) {
	logrus.WithFields(logrus.Fields{
		"port":            cfg.ServerPort,
		"tickInterval":    cfg.TickInterval,
		"defaultEncoding": cfg.DefaultEncoding,
		"logLevel":        cfg.LogLevel,
		"devMode":         cfg.EnableDevMode,
		"reevalRecording": cfg.EnableReevaluationRecording,
	}).Info("Starting StateTree server")
}

// executeServerLifecycle handles the complete server lifecycle including startup and shutdown.
func executeServerLifecycle(app *application, listener net.Listener) {
	httpServer := &http.Server{Handler: app.wrapHandler()}

	sigChan, errChan := setupShutdownHandling()
	startServerAsync(httpServer, listener, errChan)
	waitForShutdownSignal(sigChan, errChan)
	performGracefulShutdown(app, httpServer)
}

// setupShutdownHandling creates channels for graceful shutdown signal handling.
func setupShutdownHandling() (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	errChan := make(chan error, 1)
	return sigChan, errChan
}

// startServerAsync starts the server in a background goroutine.
func startServerAsync(httpServer *http.Server, listener net.Listener, errChan chan error) {
	go func() {
		logrus.WithField("address", listener.Addr()).Info("Server listening")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()
}

// waitForShutdownSignal waits for either a shutdown signal or server error.
func waitForShutdownSignal(sigChan chan os.Signal, errChan chan error) {
	select {
	case sig := <-sigChan:
		logrus.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logrus.WithError(err).Error("Server error")
	}
}

// performGracefulShutdown handles the graceful server shutdown process.
func performGracefulShutdown(app *application, httpServer *http.Server) {
	close(app.done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
	defer shutdownCancel()

	logrus.Info("Shutting down server gracefully...")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Error during HTTP shutdown")
	}

	app.rateLimit.Close()

	select {
	case <-shutdownCtx.Done():
		logrus.Warn("Shutdown timeout exceeded, forcing exit")
	case <-time.After(app.cfg.ShutdownGracePeriod):
		logrus.Info("Server shutdown completed")
	}
}
