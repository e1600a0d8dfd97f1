package domain

import "time"

// HistoryEntry is an immutable record of a finished task appended to the
// owner's history file.
type HistoryEntry struct {
	TaskID      string     `json:"task_id"`
	Filename    string     `json:"filename"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Status      TaskStatus `json:"status"`
}
