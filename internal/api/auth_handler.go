package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/babelpdf/babelpdf-api/internal/api/shared"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
	"github.com/babelpdf/babelpdf-api/internal/service/auth"
	"github.com/babelpdf/babelpdf-api/internal/store"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	userStore    store.UserStore
	tokenService auth.TokenService
	userData     *userdata.Manager
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userStore store.UserStore, tokenService auth.TokenService, userData *userdata.Manager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    userStore,
		tokenService: tokenService,
		userData:     userData,
		validator:    validator.New(),
		logger:       log.With("component", "auth_handler"),
	}
}

// Status reports whether first-run setup is still required. Public.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.userStore.Count(r.Context())
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to count users", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Success:       true,
		SetupRequired: count == 0,
		Version:       Version,
	})
}

// Setup creates the first account, which is always an administrator, and logs
// it in. Rejected once any account exists.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SetupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	count, err := h.userStore.Count(r.Context())
	if err != nil {
		log.Error("failed to count users", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	if count > 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Setup has already been completed")
		return
	}

	user, err := domain.NewUser(req.Username, req.Password, true)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if err := h.userStore.Create(r.Context(), user, req.Password); err != nil {
		log.Error("failed to create admin account", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	token, err := h.tokenService.Generate(r.Context(), user)
	if err != nil {
		log.Error("failed to generate token", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	log.Info("initial admin account created", "username", user.Username)
	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		Success:  true,
		Token:    token,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	})
}

// Login authenticates a user and issues a session token. Public.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userStore.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Debug("login failed", "username", req.Username)
		RespondWithMappedError(w, r, err)
		return
	}

	token, err := h.tokenService.Generate(r.Context(), user)
	if err != nil {
		log.Error("failed to generate token", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}

	log.Info("user logged in", "username", user.Username)
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		Success:  true,
		Token:    token,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	})
}

// Logout revokes the session token the request authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := shared.GetRawToken(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := h.tokenService.Revoke(r.Context(), token); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, OKResponse{Success: true, Message: "Logged out"})
}

// Register creates a new account. Admin only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := domain.NewUser(req.Username, req.Password, false)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if err := h.userStore.Create(r.Context(), user, req.Password); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	log.Info("account created", "username", user.Username)
	shared.RespondWithJSON(w, r, http.StatusCreated, OKResponse{Success: true, Message: "User created"})
}

// ListUsers returns all accounts. Admin only.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List(r.Context())
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Error("failed to list users", "error", err)
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UsersResponse{Success: true, Users: users})
}

// DeleteUser removes an account and purges its stored data. Admin only; an
// administrator cannot delete their own account.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	claims, ok := shared.GetUserClaims(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	username := chi.URLParam(r, "username")
	if username == claims.Username {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	if err := h.userStore.Delete(r.Context(), username); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if err := h.userData.Purge(username); err != nil {
		// Account is gone; orphaned files are a cleanup problem, not a
		// request failure.
		log.Error("failed to purge user data", "username", username, "error", err)
	}

	log.Info("account deleted", "username", username)
	shared.RespondWithJSON(w, r, http.StatusOK, OKResponse{Success: true, Message: "User deleted"})
}
