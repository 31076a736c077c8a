package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Status is a task's workflow state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Priority is a task's urgency level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ValidStatus reports whether the value is in the closed status set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ValidPriority reports whether the value is in the closed priority set.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a unit of work within a project.
type Task struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	ProjectID      uuid.UUID     `db:"project_id" json:"project_id"`
	Title          string        `db:"title" json:"title"`
	Description    string        `db:"description" json:"description"`
	Status         Status        `db:"status" json:"status"`
	Priority       Priority      `db:"priority" json:"priority"`
	AssigneeUserID uuid.NullUUID `db:"assignee_user_id" json:"assignee_user_id"`
	DueDate        *time.Time    `db:"due_date" json:"due_date,omitempty"`
	Position       int           `db:"position" json:"position"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Comment represents a comment on a task.
type Comment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TaskID       uuid.UUID `db:"task_id" json:"task_id"`
	AuthorUserID uuid.UUID `db:"author_user_id" json:"author_user_id"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
