package models

import "time"

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known task statuses
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a task in a project
type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"size:200;not null"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" gorm:"size:32;not null;default:'todo';index"`
	Priority    TaskPriority `json:"priority" gorm:"size:32;not null;default:'medium'"`
	ProjectID   uint         `json:"project_id" gorm:"not null;index"`
	AssigneeID  *uint        `json:"assignee_id" gorm:"index"`
	DueDate     *time.Time   `json:"due_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"index"`

	Project  *Project      `json:"-" gorm:"foreignKey:ProjectID"`
	Assignee *User         `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	Comments []TaskComment `json:"comments,omitempty" gorm:"foreignKey:TaskID"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// IsOverdue reports whether the task is past its due date and not done.
// It is derived on read and never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusDone
}

// IsAssignedTo reports whether userID is the task's assignee
func (t *Task) IsAssignedTo(userID uint) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
