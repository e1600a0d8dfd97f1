// Package main implements the entry point for the BabelPDF API server,
// a multi-user web front end for PDF translation.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/babelpdf/babelpdf-api/internal/config"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
)

// main loads configuration, wires the application and runs the HTTP server
// until it is signalled to stop.
func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application-wide logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"data_dir", cfg.Storage.DataDir,
		"task_ttl_hours", cfg.Storage.TaskTTLHours,
		"scanner_enabled", cfg.Scanner.Enabled)

	return cfg, appLogger, nil
}
