package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "maintenance_center/docs"
	"maintenance_center/internal/cache"
	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/config"
	"maintenance_center/internal/handlers"
	"maintenance_center/internal/logger"
	"maintenance_center/internal/repository"
	"maintenance_center/internal/repository/db"
	"maintenance_center/internal/server"
	"maintenance_center/internal/service"
)

// @title                       Maintenance Center Console API
// @version                     1.0
// @description                 Operator console for machines under repair at the maintenance center.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if cfg.Auth.UsesDevSigningKey() {
		log.Warnw("auth.signing_key is the development default; set MCC_AUTH_SIGNING_KEY")
	}

	// open DB
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	backend, err := centerapi.New(centerapi.Options{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		log.Fatalw("invalid backend configuration", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(conn)
	queries := cache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	services := service.NewService(repos, backend, queries, cfg.Auth, log)
	apiHandler := handlers.NewHandler(services, log, cfg.RateLimit)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Refresh.Enabled {
		go services.Run(ctx, cfg.Refresh.Interval)
	}

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Server, apiHandler, log)

	waitForShutdown(cancel, srv, cfg.Server, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, cfg config.ServerConfig, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", cfg.Port)
		if err := srv.Run(cfg, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, cfg config.ServerConfig, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
