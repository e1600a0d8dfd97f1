package store

import "errors"

// Errors returned by store implementations. Callers match these with
// errors.Is rather than inspecting backend-specific failures.
var (
	// ErrUserNotFound is returned when a user lookup finds no match.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when creating a user whose username is taken.
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when authentication fails. It
	// deliberately does not distinguish an unknown user from a bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
