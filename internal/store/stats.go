package store

import (
	"context"

	"project-management-api/internal/authz"
	"project-management-api/internal/models"
)

// CountProjects counts projects visible under scope. A non-empty status
// narrows the count to that status.
func (s *Store) CountProjects(ctx context.Context, scope authz.Scope, status models.ProjectStatus) (int64, error) {
	q := scopeProjects(s.conn(ctx).Model(&models.Project{}), scope)
	if status != "" {
		q = q.Where("projects.status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(err, "failed to count projects")
	}
	return n, nil
}

// TaskStatusCounts groups the tasks visible under scope by status. A
// non-zero assigneeID narrows the set to that assignee.
func (s *Store) TaskStatusCounts(ctx context.Context, scope authz.Scope, assigneeID uint) (map[models.TaskStatus]int64, error) {
	q := scopeTasks(s.conn(ctx).Model(&models.Task{}), scope)
	if assigneeID != 0 {
		q = q.Where("tasks.assignee_id = ?", assigneeID)
	}

	var rows []struct {
		Status models.TaskStatus
		Count  int64
	}
	if err := q.Select("tasks.status AS status, COUNT(*) AS count").Group("tasks.status").Scan(&rows).Error; err != nil {
		return nil, translate(err, "failed to count tasks")
	}
	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// OpenTasksWithDueDate returns the unfinished tasks visible under scope that
// carry a due date. Only id, status and due_date are loaded.
func (s *Store) OpenTasksWithDueDate(ctx context.Context, scope authz.Scope) ([]models.Task, error) {
	var tasks []models.Task
	err := scopeTasks(s.conn(ctx).Model(&models.Task{}), scope).
		Select("tasks.id", "tasks.status", "tasks.due_date").
		Where("tasks.due_date IS NOT NULL AND tasks.status <> ?", models.StatusDone).
		Find(&tasks).Error
	if err != nil {
		return nil, translate(err, "failed to fetch open tasks")
	}
	return tasks, nil
}

// RecentTasks returns up to limit tasks visible under scope, most recently
// updated first.
func (s *Store) RecentTasks(ctx context.Context, scope authz.Scope, limit int) ([]models.Task, error) {
	var tasks []models.Task
	err := scopeTasks(s.conn(ctx).Model(&models.Task{}), scope).
		Preload("Project").
		Preload("Assignee").
		Order("tasks.updated_at DESC, tasks.id DESC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, translate(err, "failed to fetch recent tasks")
	}
	return tasks, nil
}
