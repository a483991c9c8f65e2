// Package seed loads the demo data set: four users, one project and three
// tasks. Running it again leaves existing rows untouched.
package seed

import (
	"context"
	"fmt"

	"project-management-api/internal/auth"
	"project-management-api/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type demoUser struct {
	username string
	email    string
	fullName string
	password string
	role     models.Role
}

var demoUsers = []demoUser{
	{"admin", "admin@projectmgmt.com", "System Administrator", "admin123", models.RoleAdmin},
	{"john_manager", "john@projectmgmt.com", "John Smith", "manager123", models.RoleProjectManager},
	{"alice_dev", "alice@projectmgmt.com", "Alice Johnson", "dev123", models.RoleDeveloper},
	{"bob_dev", "bob@projectmgmt.com", "Bob Wilson", "dev123", models.RoleDeveloper},
}

type demoTask struct {
	title       string
	description string
	status      models.TaskStatus
	priority    models.TaskPriority
	assignee    string
}

var demoTasks = []demoTask{
	{"Design user authentication system", "Implement secure login and registration functionality", models.StatusInProgress, models.PriorityHigh, "alice_dev"},
	{"Create product catalog API", "Build RESTful API for product management", models.StatusTodo, models.PriorityMedium, "bob_dev"},
	{"Setup CI/CD pipeline", "Configure automated testing and deployment", models.StatusDone, models.PriorityHigh, "alice_dev"},
}

const demoProject = "E-commerce Platform"

// Result counts the rows a run inserted.
type Result struct {
	Users    int64
	Projects int64
	Members  int64
	Tasks    int64
}

// Run inserts whatever part of the demo data is missing.
func Run(ctx context.Context, db *gorm.DB, log *logrus.Logger) (*Result, error) {
	const op = "seed.Run"
	var res Result

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*models.User, len(demoUsers))
		for _, d := range demoUsers {
			u := &models.User{}
			n, err := ensure(tx, u, "username = ?", []any{d.username}, func() (models.User, error) {
				hash, err := auth.HashPassword(d.password)
				return models.User{
					Username:     d.username,
					Email:        d.email,
					FullName:     d.fullName,
					PasswordHash: hash,
					Role:         d.role,
					IsActive:     true,
				}, err
			})
			if err != nil {
				return fmt.Errorf("seed user %s: %w", d.username, err)
			}
			users[d.username] = u
			res.Users += n
		}

		manager := users["john_manager"]
		project := &models.Project{}
		n, err := ensure(tx, project, "name = ? AND manager_id = ?", []any{demoProject, manager.ID}, func() (models.Project, error) {
			return models.Project{
				Name:        demoProject,
				Description: "A modern e-commerce platform with advanced features",
				Status:      models.ProjectInProgress,
				ManagerID:   manager.ID,
			}, nil
		})
		if err != nil {
			return fmt.Errorf("seed project: %w", err)
		}
		res.Projects += n

		for _, name := range []string{"alice_dev", "bob_dev"} {
			userID := users[name].ID
			n, err := ensure(tx, &models.ProjectMember{}, "project_id = ? AND user_id = ?", []any{project.ID, userID}, func() (models.ProjectMember, error) {
				return models.ProjectMember{ProjectID: project.ID, UserID: userID}, nil
			})
			if err != nil {
				return fmt.Errorf("seed member %s: %w", name, err)
			}
			res.Members += n
		}

		for _, d := range demoTasks {
			assignee := users[d.assignee].ID
			n, err := ensure(tx, &models.Task{}, "title = ? AND project_id = ?", []any{d.title, project.ID}, func() (models.Task, error) {
				return models.Task{
					Title:       d.title,
					Description: d.description,
					Status:      d.status,
					Priority:    d.priority,
					ProjectID:   project.ID,
					AssigneeID:  &assignee,
				}, nil
			})
			if err != nil {
				return fmt.Errorf("seed task %q: %w", d.title, err)
			}
			res.Tasks += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"operation": op,
		"users":     res.Users,
		"projects":  res.Projects,
		"members":   res.Members,
		"tasks":     res.Tasks,
	}).Info("demo data seeded")
	return &res, nil
}

// ensure loads the row matching query into dest, or creates it from build
// when there is none. It reports how many rows were inserted.
func ensure[T any](tx *gorm.DB, dest *T, query string, args []any, build func() (T, error)) (int64, error) {
	r := tx.Where(query, args...).Limit(1).Find(dest)
	if r.Error != nil {
		return 0, r.Error
	}
	if r.RowsAffected > 0 {
		return 0, nil
	}
	row, err := build()
	if err != nil {
		return 0, err
	}
	*dest = row
	if err := tx.Create(dest).Error; err != nil {
		return 0, err
	}
	return 1, nil
}
