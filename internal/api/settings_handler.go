package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/babelpdf/babelpdf-api/internal/api/shared"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
	"github.com/babelpdf/babelpdf-api/internal/store"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

// SettingsHandler handles per-user settings and password changes.
type SettingsHandler struct {
	userStore store.UserStore
	userData  *userdata.Manager
	validator *validator.Validate
	logger    *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(userStore store.UserStore, userData *userdata.Manager, log *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		userStore: userStore,
		userData:  userData,
		validator: validator.New(),
		logger:    log.With("component", "settings_handler"),
	}
}

// Get returns the caller's stored settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	settings, err := h.userData.Settings(claims.Username)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to read settings", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SettingsResponse{
		Success:  true,
		Settings: settings,
	})
}

// Put replaces the caller's stored settings. The request body is the settings
// object itself, not a wrapper around it.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var settings json.RawMessage
	if err := shared.DecodeJSON(r, &settings); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.userData.PutSettings(claims.Username, settings); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, OKResponse{Success: true, Message: "Settings saved"})
}

// Reset replaces the caller's settings with an empty object.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.userData.ResetSettings(claims.Username); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to reset settings", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, OKResponse{Success: true, Message: "Settings reset"})
}

// ChangePassword updates the caller's password after verifying the old one.
func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Old and new passwords are required")
		return
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), claims.Username, req.OldPassword, req.NewPassword); err != nil {
		// The caller is already authenticated; a wrong current password is a
		// bad request, not a failed login.
		if errors.Is(err, store.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		RespondWithMappedError(w, r, err)
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("password changed", "username", claims.Username)
	shared.RespondWithJSON(w, r, http.StatusOK, OKResponse{Success: true, Message: "Password changed"})
}
