package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/internal/config"
	"github.com/diewo77/go-timesheets/internal/db"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/sourcegraph/conc"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load configuration from .env, config.yaml and the environment
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatalw("invalid configuration", "error", err)
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.Dev)
	if err != nil {
		logger.L.Fatalw("failed to build logger", "error", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.Database, log.Named("db"))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}

	// Handle migrate-only flag
	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database); err != nil {
			log.Fatalw("migration failed", "error", err)
		}
		log.Infow("migrations completed successfully")
		return
	}

	// Handle seed-only flag
	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalw("seeding failed", "error", err)
		}
		log.Infow("seeding completed successfully", "email", db.DemoEmail)
		return
	}

	// sqlite has no SQL migrations, so it always auto-migrates
	if cfg.Database.Migrations || cfg.Database.Driver == "sqlite" {
		if err := db.Migrate(dbConn, cfg.Database); err != nil {
			log.Fatalw("migration failed", "error", err)
		}
		log.Infow("migrations completed")
	}

	if cfg.App.Seed {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalw("seeding failed", "error", err)
		}
	}

	routerCfg := NewRouterConfig(dbConn, cfg, log, nil)

	// Tokens of deleted users are rejected
	auth.SetUserVerifier(routerCfg.Users.Exists)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if err := routerCfg.Worker.Subscribe(workerCtx); err != nil {
		log.Fatalw("failed to subscribe notification worker", "error", err)
	}
	var background conc.WaitGroup
	background.Go(func() {
		if err := routerCfg.Worker.Run(workerCtx); err != nil {
			log.Errorw("notification worker failed", "error", err)
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(log.Named("http"), NewApp(dbConn, routerCfg, log)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     log.Named("http").StdLogger(),
	}

	background.Go(func() {
		log.Infow("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server error", "error", err)
			stop()
		}
	})

	<-ctx.Done()
	log.Infow("shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}

	// Stop consuming and wait for in-flight deliveries
	stopWorker()
	if err := routerCfg.Bus.Close(); err != nil {
		log.Warnw("closing notification bus", "error", err)
	}
	background.Wait()
	log.Infow("server stopped gracefully")
}
