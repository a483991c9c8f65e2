// Package stats computes dashboard aggregates over the task and project
// sets visible to a subject.
package stats

import (
	"context"
	"math"
	"time"

	"project-management-api/internal/authz"
	"project-management-api/internal/models"
	"project-management-api/internal/store"
)

const (
	// ProgressProjects is the number of projects reported in ProjectProgress.
	ProgressProjects = 5
	// DefaultRecentLimit applies when RecentActivity is asked for no limit.
	DefaultRecentLimit = 10
)

var now = time.Now

// Source is the part of the store the engine reads from.
type Source interface {
	CountProjects(ctx context.Context, scope authz.Scope, status models.ProjectStatus) (int64, error)
	ListProjects(ctx context.Context, scope authz.Scope, page store.Page) ([]models.Project, error)
	ProjectTaskCounts(ctx context.Context, projectIDs []uint) (map[uint]store.TaskCount, error)
	TaskStatusCounts(ctx context.Context, scope authz.Scope, assigneeID uint) (map[models.TaskStatus]int64, error)
	OpenTasksWithDueDate(ctx context.Context, scope authz.Scope) ([]models.Task, error)
	RecentTasks(ctx context.Context, scope authz.Scope, limit int) ([]models.Task, error)
}

type Overview struct {
	TotalProjects    int64 `json:"total_projects"`
	ActiveProjects   int64 `json:"active_projects"`
	TotalTasks       int64 `json:"total_tasks"`
	MyTasks          int64 `json:"my_tasks"`
	MyCompletedTasks int64 `json:"my_completed_tasks"`
}

type TaskDistribution struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue"`
}

type ProjectProgress struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Progress       float64 `json:"progress"`
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
}

type Dashboard struct {
	Overview         Overview          `json:"overview"`
	TaskDistribution TaskDistribution  `json:"task_distribution"`
	ProjectProgress  []ProjectProgress `json:"project_progress"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID           uint              `json:"id"`
	Title        string            `json:"title"`
	Status       models.TaskStatus `json:"status"`
	ProjectName  string            `json:"project_name"`
	AssigneeName *string           `json:"assignee_name"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Engine computes dashboard aggregates.
type Engine struct {
	src Source
}

func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// Progress returns completed/total as a percentage rounded to two decimals,
// or 0 when total is 0.
func Progress(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// DashboardStats aggregates the projects and tasks visible to subject.
func (e *Engine) DashboardStats(ctx context.Context, subject authz.Subject) (*Dashboard, error) {
	projectScope := authz.ProjectScope(subject)
	taskScope := authz.TaskScope(subject)

	totalProjects, err := e.src.CountProjects(ctx, projectScope, "")
	if err != nil {
		return nil, err
	}
	activeProjects, err := e.src.CountProjects(ctx, projectScope, models.ProjectInProgress)
	if err != nil {
		return nil, err
	}

	byStatus, err := e.src.TaskStatusCounts(ctx, taskScope, 0)
	if err != nil {
		return nil, err
	}
	var totalTasks int64
	for _, n := range byStatus {
		totalTasks += n
	}

	overview := Overview{
		TotalProjects:    totalProjects,
		ActiveProjects:   activeProjects,
		TotalTasks:       totalTasks,
		MyTasks:          totalTasks,
		MyCompletedTasks: byStatus[models.StatusDone],
	}
	if subject.Role == models.RoleDeveloper {
		mine, err := e.src.TaskStatusCounts(ctx, taskScope, subject.ID)
		if err != nil {
			return nil, err
		}
		overview.MyTasks = 0
		for _, n := range mine {
			overview.MyTasks += n
		}
		overview.MyCompletedTasks = mine[models.StatusDone]
	}

	overdue, err := e.overdue(ctx, taskScope)
	if err != nil {
		return nil, err
	}

	progress, err := e.projectProgress(ctx, projectScope)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Overview: overview,
		TaskDistribution: TaskDistribution{
			Todo:       byStatus[models.StatusTodo],
			InProgress: byStatus[models.StatusInProgress],
			Completed:  byStatus[models.StatusDone],
			Overdue:    overdue,
		},
		ProjectProgress: progress,
	}, nil
}

func (e *Engine) overdue(ctx context.Context, scope authz.Scope) (int64, error) {
	tasks, err := e.src.OpenTasksWithDueDate(ctx, scope)
	if err != nil {
		return 0, err
	}
	at := now()
	var n int64
	for i := range tasks {
		if tasks[i].IsOverdue(at) {
			n++
		}
	}
	return n, nil
}

func (e *Engine) projectProgress(ctx context.Context, scope authz.Scope) ([]ProjectProgress, error) {
	projects, err := e.src.ListProjects(ctx, scope, store.Page{Limit: ProgressProjects})
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	counts, err := e.src.ProjectTaskCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectProgress, 0, len(projects))
	for _, p := range projects {
		c := counts[p.ID]
		out = append(out, ProjectProgress{
			ID:             p.ID,
			Name:           p.Name,
			Progress:       Progress(c.Completed, c.Total),
			TotalTasks:     c.Total,
			CompletedTasks: c.Completed,
		})
	}
	return out, nil
}

// RecentActivity lists the most recently updated tasks visible to subject.
func (e *Engine) RecentActivity(ctx context.Context, subject authz.Subject, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	tasks, err := e.src.RecentTasks(ctx, authz.TaskScope(subject), limit)
	if err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(tasks))
	for _, t := range tasks {
		a := Activity{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			UpdatedAt: t.UpdatedAt,
		}
		if t.Project != nil {
			a.ProjectName = t.Project.Name
		}
		if t.Assignee != nil {
			name := t.Assignee.FullName
			a.AssigneeName = &name
		}
		out = append(out, a)
	}
	return out, nil
}
