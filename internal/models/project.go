package models

import "time"

// ProjectStatus represents the lifecycle stage of a project
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// Valid reports whether s is one of the known project statuses
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Project represents a project owned by a manager
type Project struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name" gorm:"size:100;not null;index"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status" gorm:"size:32;not null;default:'planning'"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	ManagerID   uint          `json:"manager_id" gorm:"not null;index"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Manager *User  `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Members []User `json:"members,omitempty" gorm:"-"`
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}

// MemberIDs returns the ids of the loaded members
func (p *Project) MemberIDs() []uint {
	ids := make([]uint, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// ProjectMember is the join row between a project and a member user.
// The composite primary key keeps membership a set.
type ProjectMember struct {
	ProjectID uint      `json:"project_id" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ProjectMember Model
func (ProjectMember) TableName() string {
	return "project_members"
}
