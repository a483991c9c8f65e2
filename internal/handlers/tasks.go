package handlers

import (
	"net/http"
	"time"

	"project-management-api/internal/authz"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status" binding:"omitempty,task_status"`
	Priority    models.TaskPriority `json:"priority" binding:"omitempty,task_priority"`
	ProjectID   uint                `json:"project_id" binding:"required"`
	AssigneeID  *uint               `json:"assignee_id"`
	DueDate     *time.Time          `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string                    `json:"title" binding:"omitempty,max=200"`
	Description *string                    `json:"description"`
	Status      *models.TaskStatus         `json:"status" binding:"omitempty,task_status"`
	Priority    *models.TaskPriority       `json:"priority" binding:"omitempty,task_priority"`
	AssigneeID  models.Nullable[uint]      `json:"assignee_id"`
	DueDate     models.Nullable[time.Time] `json:"due_date"`
}

type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required,task_status"`
}

// TaskResponse is a task with its derived overdue flag.
type TaskResponse struct {
	*models.Task
	IsOverdue bool `json:"is_overdue"`
}

func newTaskResponse(t *models.Task, now time.Time) TaskResponse {
	return TaskResponse{Task: t, IsOverdue: t.IsOverdue(now)}
}

// authorizedTask loads the task named by param with its project and checks
// action on it. A missing task is reported before a denial.
func (h *Handler) authorizedTask(c *gin.Context, log *logrus.Entry, param string, action authz.Action) (*models.Task, bool) {
	id, err := parseID(c, param)
	if err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	t, err := h.store.GetTask(c.Request.Context(), id)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	if err := authz.Authorize(middleware.Subject(c), action, authz.TaskRefOf(t)); err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	return t, true
}

// taskAudience lists the users that receive events about t.
func taskAudience(t *models.Task, extra ...uint) []uint {
	var ids []uint
	if t.Project != nil {
		ids = projectAudience(t.Project)
	}
	if t.AssigneeID != nil {
		ids = append(ids, *t.AssigneeID)
	}
	return append(ids, extra...)
}

func (h *Handler) publishTask(evtType string, t *models.Task, actor uint, extra ...uint) {
	h.hub.Publish(realtime.Event{
		Type:      evtType,
		ProjectID: t.ProjectID,
		TaskID:    t.ID,
		ActorID:   actor,
	}, taskAudience(t, extra...)...)
}

// ListTasks handles GET /api/v1/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	const op = "handlers.Handler.ListTasks"
	log := h.logger(c, op)

	p, err := page(c)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	var filter store.TaskFilter
	if filter.ProjectID, err = queryUint(c, "project_id"); err != nil {
		middleware.WriteError(c, err)
		return
	}
	if filter.AssigneeID, err = queryUint(c, "assignee_id"); err != nil {
		middleware.WriteError(c, err)
		return
	}
	if status := models.TaskStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			middleware.WriteError(c, invalidQuery("status", string(status)))
			return
		}
		filter.Status = status
	}

	tasks, err := h.store.ListTasks(c.Request.Context(), authz.TaskScope(middleware.Subject(c)), filter, p)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	now := time.Now()
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = newTaskResponse(&tasks[i], now)
	}
	c.JSON(http.StatusOK, out)
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	const op = "handlers.Handler.CreateTask"
	log := h.logger(c, op)
	subject := middleware.Subject(c)

	var req CreateTaskRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()
	project, err := h.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	ref := authz.TaskRef{AssigneeID: req.AssigneeID, Project: authz.ProjectRefOf(project)}
	if err := authz.Authorize(subject, authz.ActionCreate, ref); err != nil {
		middleware.WriteError(c, err)
		return
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	}
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := h.store.CreateTask(ctx, task); err != nil {
		h.fail(c, log, err)
		return
	}
	h.publishTask(realtime.TaskCreated, task, subject.ID)
	log.WithFields(logrus.Fields{"task_id": task.ID, "project_id": task.ProjectID}).Info("task created")
	c.JSON(http.StatusCreated, newTaskResponse(task, time.Now()))
}

// GetTask handles GET /api/v1/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	const op = "handlers.Handler.GetTask"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(t, time.Now()))
}

// UpdateTask handles PUT /api/v1/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	const op = "handlers.Handler.UpdateTask"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionUpdate)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.applyTaskPatch(c, log, t, store.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
}

// UpdateTaskStatus handles PATCH /api/v1/tasks/:id/status
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	const op = "handlers.Handler.UpdateTaskStatus"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionUpdate)
	if !ok {
		return
	}
	var req UpdateTaskStatusRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	h.applyTaskPatch(c, log, t, store.TaskPatch{Status: &req.Status})
}

func (h *Handler) applyTaskPatch(c *gin.Context, log *logrus.Entry, t *models.Task, patch store.TaskPatch) {
	updated, err := h.store.UpdateTask(c.Request.Context(), t.ID, patch)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	var previous []uint
	if t.AssigneeID != nil {
		previous = append(previous, *t.AssigneeID)
	}
	h.publishTask(realtime.TaskUpdated, updated, middleware.Subject(c).ID, previous...)
	c.JSON(http.StatusOK, newTaskResponse(updated, time.Now()))
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	const op = "handlers.Handler.DeleteTask"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionDelete)
	if !ok {
		return
	}
	if err := h.store.DeleteTask(c.Request.Context(), t.ID); err != nil {
		h.fail(c, log, err)
		return
	}
	h.publishTask(realtime.TaskDeleted, t, middleware.Subject(c).ID)
	log.WithField("task_id", t.ID).Info("task deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
