package task

import "errors"

// Registry errors.
var (
	// ErrTaskNotFound is returned when no task matches the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateTask is returned when creating a task whose ID is taken.
	ErrDuplicateTask = errors.New("task already exists")

	// ErrInvalidTransition is returned when an update would move a task
	// backwards in its lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrProgressRegression is returned when an update would lower progress.
	ErrProgressRegression = errors.New("progress cannot decrease")
)
