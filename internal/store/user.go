// Package store defines the persistence interfaces used by the API layer.
package store

import (
	"context"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

// UserStore defines the interface for managing user accounts.
type UserStore interface {
	// Create persists a new user with the given plaintext password.
	// The implementation hashes the password before storage.
	// Returns ErrUsernameExists if the username is taken.
	Create(ctx context.Context, user *domain.User, password string) error

	// Get retrieves a user by username. Returns ErrUserNotFound if absent.
	Get(ctx context.Context, username string) (*domain.User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)

	// Delete removes a user. Returns ErrUserNotFound if absent.
	Delete(ctx context.Context, username string) error

	// Authenticate verifies a username/password pair and returns the user.
	// Returns ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// UpdatePassword changes a user's password after verifying the old one.
	// Returns ErrInvalidCredentials if the old password does not match.
	UpdatePassword(ctx context.Context, username, oldPassword, newPassword string) error
}
