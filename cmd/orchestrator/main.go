// Orchestrator server: creates SDLC workflows, drives their state machine
// with persistent history, and executes phases through the Agent Hub.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/database"
	"github.com/sdlc-forge/maestro/pkg/hubclient"
	"github.com/sdlc-forge/maestro/pkg/orchestrator"
	orchapi "github.com/sdlc-forge/maestro/pkg/orchestrator/api"
	"github.com/sdlc-forge/maestro/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config",
		getEnv("CONFIG_PATH", "./config/maestro.yaml"),
		"Path to configuration file")
	flag.Parse()

	// Load .env if present
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment")
	}

	httpPort := getEnv("HTTP_PORT", "8000")

	slog.Info("Starting Orchestrator",
		"version", version.Full(),
		"http_port", httpPort,
		"config", *configPath)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configPath)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize database
	dbConfig, err := database.LoadConfigFromEnv("maestro_orchestrator")
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig, orchestrator.Migrations)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Wire the hub client and workflow service
	hubClient := hubclient.NewClient(cfg.Orchestrator.AgentHubURL)
	if err := hubClient.Health(ctx); err != nil {
		// Non-fatal: the hub may come up after us; phase executions retry.
		slog.Warn("Agent Hub not reachable at startup",
			"url", cfg.Orchestrator.AgentHubURL, "error", err)
	}

	workflowSvc := orchestrator.NewService(dbClient.DB(), cfg, hubClient)
	slog.Info("Services initialized", "agent_hub_url", cfg.Orchestrator.AgentHubURL)

	// 4. Create HTTP server
	apiServer := orchapi.NewServer(dbClient.DB(), workflowSvc)
	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: apiServer.Handler(),
	}

	// 5. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Orchestrator started successfully")

	// 6. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
	}

	// 7. Graceful shutdown: stop accepting requests, then drain phases
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(),
		cfg.Orchestrator.GracefulShutdownTimeout.Std())
	defer cancelDrain()
	workflowSvc.Stop(drainCtx)

	slog.Info("Orchestrator stopped")
}
