// Agent Hub server: routes expert questions to workers, gates answers on
// confidence, manages sessions and escalations, and writes the audit log.
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

	"github.com/sdlc-forge/maestro/pkg/agent"
	"github.com/sdlc-forge/maestro/pkg/audit"
	"github.com/sdlc-forge/maestro/pkg/config"
	"github.com/sdlc-forge/maestro/pkg/database"
	"github.com/sdlc-forge/maestro/pkg/forge"
	"github.com/sdlc-forge/maestro/pkg/hub"
	hubapi "github.com/sdlc-forge/maestro/pkg/hub/api"
	"github.com/sdlc-forge/maestro/pkg/slack"
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

	httpPort := getEnv("HTTP_PORT", "8001")

	slog.Info("Starting Agent Hub",
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
	dbConfig, err := database.LoadConfigFromEnv("maestro_hub")
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig, hub.Migrations)
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

	// 3. Initialize audit log
	auditLog, err := audit.NewWriter(cfg.Hub.AuditLogPath)
	if err != nil {
		slog.Error("Failed to initialize audit log", "error", err)
		os.Exit(1)
	}
	if auditLog.Enabled() {
		slog.Info("Audit log enabled", "path", cfg.Hub.AuditLogPath)
	}

	// 4. Initialize notification services (both optional)
	var forgeToken string
	if cfg.Forge != nil && cfg.Forge.TokenEnv != "" {
		forgeToken = os.Getenv(cfg.Forge.TokenEnv)
	}
	forgeSvc := forge.NewService(cfg.Forge, forgeToken)
	if forgeSvc != nil {
		slog.Info("Forge escalation notices enabled", "repository", cfg.Forge.Repository)
	}

	var slackSvc *slack.Service
	if cfg.Slack != nil && (cfg.Slack.Enabled == nil || *cfg.Slack.Enabled) {
		tokenEnv := cfg.Slack.TokenEnv
		if tokenEnv == "" {
			tokenEnv = "SLACK_BOT_TOKEN"
		}
		slackSvc = slack.NewService(slack.ServiceConfig{
			Token:   os.Getenv(tokenEnv),
			Channel: cfg.Slack.Channel,
		})
	}
	if slackSvc != nil {
		slog.Info("Slack escalation notifications enabled", "channel", cfg.Slack.Channel)
	}

	// 5. Wire domain services
	db := dbClient.DB()
	router := hub.NewRouter(cfg)
	sessionSvc := hub.NewSessionService(db, cfg.Hub.SessionTTL.Std())
	escalationSvc := hub.NewEscalationService(db, sessionSvc, cfg.Hub.EscalationTTL.Std())
	workers := agent.NewClient()
	askSvc := hub.NewAskService(cfg, router, sessionSvc, escalationSvc, workers,
		auditLog, forgeSvc, slackSvc)
	slog.Info("Services initialized", "agents", cfg.AgentRegistry.Len())

	// 6. Create HTTP server
	apiServer := hubapi.NewServer(cfg, db, askSvc, sessionSvc, escalationSvc, router, slackSvc)
	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: apiServer.Handler(),
	}

	// 7. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Agent Hub started successfully")

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
	}

	// 9. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Agent Hub stopped")
}
