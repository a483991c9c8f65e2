package handlers

import (
	"context"
	"net/http"
	"time"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/authz"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/stats"
	"project-management-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CreateProjectRequest struct {
	Name        string               `json:"name" binding:"required,max=100"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status" binding:"omitempty,project_status"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	ManagerID   uint                 `json:"manager_id"`
	MemberIDs   []uint               `json:"member_ids"`
}

type UpdateProjectRequest struct {
	Name        *string                    `json:"name" binding:"omitempty,max=100"`
	Description *string                    `json:"description"`
	Status      *models.ProjectStatus      `json:"status" binding:"omitempty,project_status"`
	StartDate   models.Nullable[time.Time] `json:"start_date"`
	EndDate     models.Nullable[time.Time] `json:"end_date"`
	ManagerID   *uint                      `json:"manager_id"`
	MemberIDs   *[]uint                    `json:"member_ids"`
}

// ProjectResponse is a project with its task progress.
type ProjectResponse struct {
	*models.Project
	TaskCount          int64   `json:"task_count"`
	CompletedTasks     int64   `json:"completed_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

func (h *Handler) projectResponses(c *gin.Context, projects []models.Project) ([]ProjectResponse, error) {
	ids := make([]uint, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	counts, err := h.store.ProjectTaskCounts(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectResponse, len(projects))
	for i := range projects {
		n := counts[projects[i].ID]
		out[i] = ProjectResponse{
			Project:            &projects[i],
			TaskCount:          n.Total,
			CompletedTasks:     n.Completed,
			ProgressPercentage: stats.Progress(n.Completed, n.Total),
		}
	}
	return out, nil
}

func (h *Handler) projectResponse(c *gin.Context, p *models.Project) (ProjectResponse, error) {
	out, err := h.projectResponses(c, []models.Project{*p})
	if err != nil {
		return ProjectResponse{}, err
	}
	return out[0], nil
}

// authorizedProject loads the project named by param and checks action on
// it. A missing project is reported before a denial.
func (h *Handler) authorizedProject(c *gin.Context, log *logrus.Entry, param string, action authz.Action) (*models.Project, bool) {
	id, err := parseID(c, param)
	if err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	p, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	if err := authz.Authorize(middleware.Subject(c), action, authz.ProjectRefOf(p)); err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	return p, true
}

// projectAudience lists the users that receive events about p.
func projectAudience(p *models.Project) []uint {
	return append([]uint{p.ManagerID}, p.MemberIDs()...)
}

// ListProjects handles GET /api/v1/projects
func (h *Handler) ListProjects(c *gin.Context) {
	const op = "handlers.Handler.ListProjects"
	log := h.logger(c, op)

	p, err := page(c)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	projects, err := h.store.ListProjects(c.Request.Context(), authz.ProjectScope(middleware.Subject(c)), p)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	out, err := h.projectResponses(c, projects)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateProject handles POST /api/v1/projects
func (h *Handler) CreateProject(c *gin.Context) {
	const op = "handlers.Handler.CreateProject"
	log := h.logger(c, op)
	subject := middleware.Subject(c)

	var req CreateProjectRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	if req.ManagerID == 0 {
		req.ManagerID = subject.ID
	}
	if req.Status == "" {
		req.Status = models.ProjectPlanning
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		middleware.WriteError(c, apperrors.Validation("end_date must not be before start_date"))
		return
	}
	if err := authz.Authorize(subject, authz.ActionCreate, authz.ProjectRef{ManagerID: req.ManagerID}); err != nil {
		middleware.WriteError(c, err)
		return
	}

	project := &models.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ManagerID:   req.ManagerID,
	}
	if err := h.store.CreateProject(c.Request.Context(), project, req.MemberIDs); err != nil {
		h.fail(c, log, err)
		return
	}
	out, err := h.projectResponse(c, project)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	log.WithField("project_id", project.ID).Info("project created")
	c.JSON(http.StatusCreated, out)
}

// GetProject handles GET /api/v1/projects/:id
func (h *Handler) GetProject(c *gin.Context) {
	const op = "handlers.Handler.GetProject"
	log := h.logger(c, op)

	p, ok := h.authorizedProject(c, log, "id", authz.ActionRead)
	if !ok {
		return
	}
	out, err := h.projectResponse(c, p)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UpdateProject handles PUT /api/v1/projects/:id
func (h *Handler) UpdateProject(c *gin.Context) {
	const op = "handlers.Handler.UpdateProject"
	log := h.logger(c, op)

	p, ok := h.authorizedProject(c, log, "id", authz.ActionUpdate)
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}

	patch := store.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ManagerID:   req.ManagerID,
	}
	if req.MemberIDs != nil {
		patch.MemberIDs = *req.MemberIDs
		if patch.MemberIDs == nil {
			patch.MemberIDs = []uint{}
		}
	}

	updated, err := h.store.UpdateProject(c.Request.Context(), p.ID, patch)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	out, err := h.projectResponse(c, updated)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteProject handles DELETE /api/v1/projects/:id
func (h *Handler) DeleteProject(c *gin.Context) {
	const op = "handlers.Handler.DeleteProject"
	log := h.logger(c, op)
	subject := middleware.Subject(c)

	p, ok := h.authorizedProject(c, log, "id", authz.ActionDelete)
	if !ok {
		return
	}
	if err := h.store.DeleteProject(c.Request.Context(), p.ID); err != nil {
		h.fail(c, log, err)
		return
	}
	h.hub.Publish(realtime.Event{Type: realtime.ProjectDeleted, ProjectID: p.ID, ActorID: subject.ID}, projectAudience(p)...)
	log.WithField("project_id", p.ID).Info("project deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// ListMembers handles GET /api/v1/projects/:id/members
func (h *Handler) ListMembers(c *gin.Context) {
	const op = "handlers.Handler.ListMembers"
	log := h.logger(c, op)

	p, ok := h.authorizedProject(c, log, "id", authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.Members)
}

// AddMember handles POST /api/v1/projects/:id/members/:user_id
func (h *Handler) AddMember(c *gin.Context) {
	h.changeMember(c, "handlers.Handler.AddMember", h.store.AddMember)
}

// RemoveMember handles DELETE /api/v1/projects/:id/members/:user_id
func (h *Handler) RemoveMember(c *gin.Context) {
	h.changeMember(c, "handlers.Handler.RemoveMember", h.store.RemoveMember)
}

func (h *Handler) changeMember(c *gin.Context, op string, apply func(ctx context.Context, projectID, userID uint) error) {
	log := h.logger(c, op)

	p, ok := h.authorizedProject(c, log, "id", authz.ActionUpdate)
	if !ok {
		return
	}
	userID, err := parseID(c, "user_id")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := apply(ctx, p.ID, userID); err != nil {
		h.fail(c, log, err)
		return
	}
	updated, err := h.store.GetProject(ctx, p.ID)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, updated.Members)
}
