package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcastilho/clientdesk/api"
	dbfs "github.com/mcastilho/clientdesk/db"
	"github.com/mcastilho/clientdesk/internal/config"
	"github.com/mcastilho/clientdesk/internal/db"
	"github.com/mcastilho/clientdesk/internal/jobs"
	"github.com/mcastilho/clientdesk/internal/repository/sqlite"
	"github.com/mcastilho/clientdesk/pkg/paygate"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)
	paygate.SetLogger(logger)

	log.Printf("Starting clientdesk server version %s (built at %s)", version, buildTime)

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	gateway, err := paygate.NewDefaultClient(cfg.Gateway)
	if err != nil {
		log.Fatalf("Failed to create payment gateway client: %v", err)
	}

	repo := sqlite.New(database, logger)
	queue := jobs.NewRepository(database)
	pool := jobs.NewWorkerPool(queue, map[string]jobs.Handler{
		jobs.TypeMarkOverdue:     jobs.NewMarkOverdueHandler(repo, queue, logger),
		jobs.TypeContactReceived: jobs.NewContactReceivedHandler(repo, logger),
	}, logger, cfg.Workers)
	pool.Start(ctx)

	// Kick off the overdue sweep; the handler reschedules itself hourly.
	if _, err := pool.Enqueue(ctx, jobs.TypeMarkOverdue, nil, 1, 3); err != nil {
		log.Printf("Failed to schedule overdue sweep: %v", err)
	}

	handler, err := api.SetupRoutes(cfg, version, buildTime, database, gateway, pool)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()
	gateway.Close()

	if err := database.Close(); err != nil {
		log.Printf("Error closing DB: %v", err)
	}

	log.Println("Server exited")
}
