package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/babelpdf/babelpdf-api/internal/api"
	apiMiddleware "github.com/babelpdf/babelpdf-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userStore, app.tokenService, app.userData, app.logger)
	settingsHandler := api.NewSettingsHandler(app.userStore, app.userData, app.logger)
	translateHandler := api.NewTranslateHandler(app.registry, app.runner, app.userData, app.scanner, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenService)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints.
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/setup", authHandler.Setup)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated endpoints.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/settings", settingsHandler.Get)
			r.Post("/settings", settingsHandler.Put)
			r.Post("/settings/reset", settingsHandler.Reset)
			r.Post("/settings/password", settingsHandler.ChangePassword)

			r.Post("/upload", translateHandler.Upload)
			r.Post("/translate", translateHandler.Start)
			r.Get("/translate/status/{task_id}", translateHandler.Status)
			r.Get("/translate/download/{task_id}", translateHandler.Download)
			r.Get("/translate/ws/{task_id}", translateHandler.Progress)
			r.Get("/translate/history", translateHandler.History)

			// Admin endpoints.
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin)

				r.Post("/auth/register", authHandler.Register)
				r.Get("/auth/users", authHandler.ListUsers)
				r.Delete("/auth/users/{username}", authHandler.DeleteUser)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
