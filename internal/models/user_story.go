package models

import "time"

// UserStory is a backlog entry belonging to a project
type UserStory struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Title              string    `json:"title" gorm:"size:200;not null"`
	Description        string    `json:"description" gorm:"not null"`
	AcceptanceCriteria *string   `json:"acceptance_criteria"`
	ProjectID          uint      `json:"project_id" gorm:"not null;index"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserStory Model
func (UserStory) TableName() string {
	return "user_stories"
}

// All lists every model that takes part in migrations
func All() []any {
	return []any{
		&User{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&TaskComment{},
		&UserStory{},
	}
}
