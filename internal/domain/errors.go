// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrNotOwner is returned when a user accesses a task they did not create.
	ErrNotOwner = errors.New("not the task owner")

	// ErrTaskNotCompleted is returned when output is requested from a task
	// that has not reached the completed state.
	ErrTaskNotCompleted = errors.New("task not completed")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
