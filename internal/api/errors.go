// Package api implements the HTTP handlers for the translation service.
package api

import (
	"errors"
	"net/http"

	"github.com/babelpdf/babelpdf-api/internal/api/shared"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/security"
	"github.com/babelpdf/babelpdf-api/internal/service/auth"
	"github.com/babelpdf/babelpdf-api/internal/store"
	"github.com/babelpdf/babelpdf-api/internal/task"
	"github.com/babelpdf/babelpdf-api/internal/userdata"
)

// MapErrorToStatusCode maps service and store errors to HTTP status codes.
// Unknown errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, userdata.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUsernameExists),
		errors.Is(err, domain.ErrTaskNotCompleted),
		errors.Is(err, task.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyUsername),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrEmptyPassword),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong),
		errors.Is(err, userdata.ErrInvalidSettings),
		errors.Is(err, userdata.ErrInvalidFilename),
		errors.Is(err, security.ErrInfected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for the error. Internal
// detail stays in the logs; clients only see what they can act on.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrRevokedToken):
		return "Invalid or expired token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, domain.ErrNotOwner):
		return "Access denied"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, userdata.ErrUploadNotFound):
		return "Uploaded file not found"
	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"
	case errors.Is(err, domain.ErrTaskNotCompleted):
		return "Task is not completed"
	case errors.Is(err, security.ErrInfected):
		return "File failed virus scan"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyUsername),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrEmptyPassword),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong),
		errors.Is(err, userdata.ErrInvalidSettings),
		errors.Is(err, userdata.ErrInvalidFilename):
		return err.Error()
	default:
		return "An internal error occurred"
	}
}

// RespondWithMappedError maps a domain error to its status code and safe
// message and writes the standard error response.
func RespondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
}
