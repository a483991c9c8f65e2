package store

import (
	"context"
	"time"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskFilter narrows a task list beyond the visibility scope. Zero values
// are ignored.
type TaskFilter struct {
	ProjectID  uint
	AssigneeID uint
	Status     models.TaskStatus
}

// TaskPatch lists the task fields an update may change.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	AssigneeID  models.Nullable[uint]
	DueDate     models.Nullable[time.Time]
}

func (p TaskPatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Priority != nil {
		cols["priority"] = *p.Priority
	}
	if p.AssigneeID.Set {
		cols["assignee_id"] = p.AssigneeID.Value
	}
	if p.DueDate.Set {
		cols["due_date"] = p.DueDate.Value
	}
	return cols
}

// CreateTask inserts t. The project must exist and the assignee, when set,
// must reference an existing user.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Project{}, t.ProjectID, "project"); err != nil {
			return err
		}
		if t.AssigneeID != nil {
			if err := assigneeExists(tx, *t.AssigneeID); err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Create(t).Error
	})
	if err != nil {
		return err
	}
	fresh, err := s.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

func assigneeExists(tx *gorm.DB, id uint) error {
	ok, err := exists(tx, &models.User{}, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validation("assignee not found")
	}
	return nil
}

// GetTask returns the task with id, its project (with members), assignee
// and comments with their authors.
func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	return getTask(s.conn(ctx), id)
}

func getTask(db *gorm.DB, id uint) (*models.Task, error) {
	var t models.Task
	err := db.
		Preload("Project").
		Preload("Assignee").
		Preload("Comments", func(q *gorm.DB) *gorm.DB { return q.Order("created_at, id") }).
		Preload("Comments.Author").
		First(&t, id).Error
	if err != nil {
		return nil, lookup(err, "task")
	}
	if t.Project != nil {
		if err := loadMembers(db, []*models.Project{t.Project}); err != nil {
			return nil, translate(err, "failed to fetch project members")
		}
	}
	return &t, nil
}

// ListTasks returns tasks visible under scope matching filter, ordered by id.
func (s *Store) ListTasks(ctx context.Context, scope authz.Scope, filter TaskFilter, page Page) ([]models.Task, error) {
	q := scopeTasks(s.conn(ctx).Model(&models.Task{}), scope)
	if filter.ProjectID != 0 {
		q = q.Where("tasks.project_id = ?", filter.ProjectID)
	}
	if filter.AssigneeID != 0 {
		q = q.Where("tasks.assignee_id = ?", filter.AssigneeID)
	}
	if filter.Status != "" {
		q = q.Where("tasks.status = ?", filter.Status)
	}

	var tasks []models.Task
	if err := page.apply(q.Preload("Assignee").Order("tasks.id")).Find(&tasks).Error; err != nil {
		return nil, translate(err, "failed to fetch tasks")
	}
	return tasks, nil
}

// UpdateTask applies patch to the task with id.
func (s *Store) UpdateTask(ctx context.Context, id uint, patch TaskPatch) (*models.Task, error) {
	var out *models.Task
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Task{}, id, "task"); err != nil {
			return err
		}
		if patch.AssigneeID.Set && patch.AssigneeID.Value != nil {
			if err := assigneeExists(tx, *patch.AssigneeID.Value); err != nil {
				return err
			}
		}
		if cols := patch.columns(); len(cols) > 0 {
			if err := tx.Model(&models.Task{ID: id}).Updates(cols).Error; err != nil {
				return err
			}
		}
		var err error
		out, err = getTask(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task and its comments.
func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Task{}, id, "task"); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}
