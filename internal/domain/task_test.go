package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	task := NewTask("alice", "file-1")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "alice", task.Owner)
	assert.Equal(t, "file-1", task.FileID)
	assert.Equal(t, TaskStatusQueued, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.NotEmpty(t, task.Message)
	assert.False(t, task.CreatedAt.IsZero())

	// IDs must be unique
	other := NewTask("alice", "file-1")
	assert.NotEqual(t, task.ID, other.ID)
}

func TestTaskStatusCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{"queued to processing", TaskStatusQueued, TaskStatusProcessing, true},
		{"queued to completed skips processing", TaskStatusQueued, TaskStatusCompleted, false},
		{"queued to failed skips processing", TaskStatusQueued, TaskStatusFailed, false},
		{"processing to completed", TaskStatusProcessing, TaskStatusCompleted, true},
		{"processing to failed", TaskStatusProcessing, TaskStatusFailed, true},
		{"processing back to queued", TaskStatusProcessing, TaskStatusQueued, false},
		{"completed is terminal", TaskStatusCompleted, TaskStatusProcessing, false},
		{"completed cannot fail", TaskStatusCompleted, TaskStatusFailed, false},
		{"failed is terminal", TaskStatusFailed, TaskStatusProcessing, false},
		{"failed cannot complete", TaskStatusFailed, TaskStatusCompleted, false},
		{"processing self-transition for progress updates", TaskStatusProcessing, TaskStatusProcessing, true},
		{"completed self-transition rejected", TaskStatusCompleted, TaskStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()

	task := NewTask("alice", "file-1")
	task.OutputFiles = &OutputFiles{Mono: "a.pdf", Dual: "b.pdf"}

	clone := task.Clone()
	require.NotSame(t, task, clone)
	require.NotSame(t, task.OutputFiles, clone.OutputFiles)
	assert.Equal(t, task, clone)

	// Mutating the clone must not affect the original.
	clone.Progress = 50
	clone.OutputFiles.Mono = "changed.pdf"
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, "a.pdf", task.OutputFiles.Mono)
}
