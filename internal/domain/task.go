package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a translation task.
type TaskStatus string

// Possible task status values. Transitions are strictly
// queued -> processing -> completed | failed; terminal states absorb.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition reports whether moving from s to next is a legal step in the
// task lifecycle. Self-transitions are allowed so that progress updates can
// restate the current status.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s == next {
		return !s.Terminal()
	}
	switch s {
	case TaskStatusQueued:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// OutputFiles holds the paths of the rendered translation variants.
type OutputFiles struct {
	Mono string `json:"mono,omitempty"`
	Dual string `json:"dual,omitempty"`
}

// Task is one user-initiated translation request tracked from queued to a
// terminal state. The owner never changes after creation.
type Task struct {
	ID          string       `json:"task_id"`
	Owner       string       `json:"username"`
	FileID      string       `json:"file_id"`
	Status      TaskStatus   `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	OutputFiles *OutputFiles `json:"output_files,omitempty"`
}

// NewTask creates a queued task owned by the given user.
func NewTask(owner, fileID string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New().String(),
		Owner:     owner,
		FileID:    fileID,
		Status:    TaskStatusQueued,
		Progress:  0,
		Message:   "Translation queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the task. Registry reads hand out clones so
// that callers can never mutate shared state.
func (t *Task) Clone() *Task {
	c := *t
	if t.OutputFiles != nil {
		files := *t.OutputFiles
		c.OutputFiles = &files
	}
	return &c
}
