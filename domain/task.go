package domain

import "time"

// Task states.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s names one of the known task states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task represents a single row in the shared task list.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskFields carries a partial update. Nil fields are left untouched.
type TaskFields struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Empty reports whether no field is defined.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil
}
