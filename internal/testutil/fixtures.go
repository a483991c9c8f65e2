package testutil

import (
	"testing"
	"time"

	"project-management-api/internal/auth"
	"project-management-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestPassword is the password of every seeded user
const TestPassword = "secret123"

// passwordHash is computed once, bcrypt is slow
var passwordHash = func() string {
	h, err := auth.HashPassword(TestPassword)
	if err != nil {
		panic(err)
	}
	return h
}()

// Tokens returns the token service used by tests
func Tokens() *auth.Tokens {
	return auth.NewTokens(auth.TokenSettings{
		Secret:   "test-secret",
		Issuer:   "project-management-api",
		Audience: "project-management-clients",
		TTL:      time.Hour,
	})
}

// Token issues a token for user
func Token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := Tokens().Issue(user.ID)
	require.NoError(t, err)
	return token
}

// CreateUser inserts an active user with the given role
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateProject inserts a project managed by manager with the given members
func CreateProject(t *testing.T, db *gorm.DB, name string, manager *models.User, members ...*models.User) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, Status: models.ProjectInProgress, ManagerID: manager.ID}
	require.NoError(t, db.Omit("Manager").Create(p).Error)
	for _, m := range members {
		require.NoError(t, db.Create(&models.ProjectMember{ProjectID: p.ID, UserID: m.ID}).Error)
	}
	return p
}

// CreateTask inserts a task in project, optionally assigned
func CreateTask(t *testing.T, db *gorm.DB, title string, project *models.Project, assignee *models.User, status models.TaskStatus) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:     title,
		Status:    status,
		Priority:  models.PriorityMedium,
		ProjectID: project.ID,
	}
	if assignee != nil {
		id := assignee.ID
		task.AssigneeID = &id
	}
	require.NoError(t, db.Omit("Project", "Assignee", "Comments").Create(task).Error)
	return task
}
