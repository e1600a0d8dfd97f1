package api

import (
	"encoding/json"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

// Version is the API version reported by the status endpoint.
const Version = "2.0.0"

// SetupRequest defines the first-run admin creation request.
type SetupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest defines the login request payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest defines the admin user-creation request payload. Accounts
// created through register are always regular users; only first-run setup
// produces an administrator.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest defines the password change request payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// TranslateRequest starts a translation for a previously uploaded file.
// Settings is a JSON object encoded as a string, matching what web clients
// store per user.
type TranslateRequest struct {
	FileID   string `json:"file_id" validate:"required"`
	Settings string `json:"settings"`
}

// StatusResponse reports whether the service needs first-run setup.
type StatusResponse struct {
	Success       bool   `json:"success"`
	SetupRequired bool   `json:"setup_required"`
	Version       string `json:"version"`
}

// AuthResponse is returned by login and setup.
type AuthResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// OKResponse is the generic success envelope for operations with no payload.
type OKResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UploadResponse is returned after a successful file upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// TranslateResponse is returned after a translation task is queued.
type TranslateResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

// TaskResponse wraps a task snapshot.
type TaskResponse struct {
	Success bool         `json:"success"`
	Task    *domain.Task `json:"task"`
}

// HistoryResponse lists a user's completed translations.
type HistoryResponse struct {
	Success bool                  `json:"success"`
	History []domain.HistoryEntry `json:"history"`
}

// UsersResponse lists all accounts for administrators.
type UsersResponse struct {
	Success bool           `json:"success"`
	Users   []*domain.User `json:"users"`
}

// SettingsResponse carries a user's settings. The blob is embedded as a JSON
// object, not re-encoded as a string.
type SettingsResponse struct {
	Success  bool            `json:"success"`
	Settings json.RawMessage `json:"settings"`
}
