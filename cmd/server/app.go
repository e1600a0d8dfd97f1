package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/babelpdf/babelpdf-api/internal/config"
	"github.com/babelpdf/babelpdf-api/internal/security"
	"github.com/babelpdf/babelpdf-api/internal/service/auth"
	"github.com/babelpdf/babelpdf-api/internal/store"
	"github.com/babelpdf/babelpdf-api/internal/store/file"
	"github.com/babelpdf/babelpdf-api/internal/task"
	"github.com/babelpdf/babelpdf-api/internal/translator"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

// janitorInterval is how often the registry sweeps expired tasks.
const janitorInterval = 10 * time.Minute

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	userStore store.UserStore
	userData  *userdata.Manager

	tokenService auth.TokenService
	scanner      *security.Scanner

	registry *task.Registry
	runner   *task.Runner
	engine   translator.Translator

	// stopJanitor ends the registry's background sweep loop.
	stopJanitor context.CancelFunc
}

// newApplication creates a new application instance with all dependencies
// initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.tokenService, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("token service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore, err = file.NewUserStore(cfg.Storage.DataDir, auth.NewBcryptHasher(cfg.Auth.BCryptCost), auth.NewBcryptVerifier())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user store: %w", err)
	}

	app.userData, err = userdata.NewManager(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user data manager: %w", err)
	}

	app.scanner = security.NewScanner(cfg.Scanner, logger.With("component", "scanner"))

	app.engine = translator.NewDraftEngine()

	ttl := time.Duration(cfg.Storage.TaskTTLHours) * time.Hour
	app.registry = task.NewRegistry(ttl, logger.With("component", "task_registry"))

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	app.stopJanitor = stopJanitor
	app.registry.StartJanitor(janitorCtx, janitorInterval)

	app.runner = task.NewRunner(app.registry, app.engine, app.userData, logger.With("component", "task_runner"))

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. In-flight
// translations are cancelled and waited for so no goroutine outlives the
// process teardown.
func (app *application) cleanup() {
	if app.stopJanitor != nil {
		app.stopJanitor()
	}

	app.registry.CancelAll()
	app.runner.Wait()

	app.logger.Info("Application shutdown completed")
}
