// Package main initializes and starts the CommitKeeper registry server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/CommitKeeper/internal/config"
	"github.com/atinyakov/CommitKeeper/internal/db"
	"github.com/atinyakov/CommitKeeper/internal/logger"
	"github.com/atinyakov/CommitKeeper/internal/repository"
	"github.com/atinyakov/CommitKeeper/internal/server/handler/http"
	"github.com/atinyakov/CommitKeeper/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Purge revealed commitments past retention.
	if _, err := db.StartRevealedCleaner(ctx, postgresDB, options.CleanSpec, options.Retention, zapLogger); err != nil {
		zapLogger.Fatal("cannot schedule cleaner", zap.String("spec", options.CleanSpec), zap.Error(err))
	}

	registryRepo := repository.NewPostgresRegistryRepository(postgresDB)
	registryService := service.NewRegistryService(registryRepo)

	verifyHandler := &http.VerifyHandler{}
	registryHandler := &http.RegistryHandler{RegistryService: registryService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(verifyHandler, registryHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", addr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
