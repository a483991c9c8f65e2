package handlers

import (
	"net/http"

	"project-management-api/internal/authz"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CreateUserStoryRequest struct {
	Title              string  `json:"title" binding:"required,max=200"`
	Description        string  `json:"description" binding:"required"`
	AcceptanceCriteria *string `json:"acceptance_criteria"`
	ProjectID          uint    `json:"project_id" binding:"required"`
}

type UpdateUserStoryRequest struct {
	Title              *string                 `json:"title" binding:"omitempty,max=200"`
	Description        *string                 `json:"description"`
	AcceptanceCriteria models.Nullable[string] `json:"acceptance_criteria"`
}

type GenerateStoriesRequest struct {
	ProjectDescription string `json:"project_description" binding:"required"`
	ProjectID          uint   `json:"project_id" binding:"required"`
}

type UserStoryList struct {
	UserStories []models.UserStory `json:"user_stories"`
	Total       int64              `json:"total"`
}

// projectFor loads a project by id and checks action on its stories.
func (h *Handler) projectFor(c *gin.Context, log *logrus.Entry, projectID uint, action authz.Action) (*models.Project, bool) {
	p, err := h.store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	ref := authz.UserStoryRef{Project: authz.ProjectRefOf(p)}
	if err := authz.Authorize(middleware.Subject(c), action, ref); err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	return p, true
}

func (h *Handler) authorizedStory(c *gin.Context, log *logrus.Entry, action authz.Action) (*models.UserStory, bool) {
	id, err := parseID(c, "id")
	if err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	story, err := h.store.GetUserStory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	if _, ok := h.projectFor(c, log, story.ProjectID, action); !ok {
		return nil, false
	}
	return story, true
}

// ListProjectStories handles GET /api/v1/user-stories/project/:project_id
func (h *Handler) ListProjectStories(c *gin.Context) {
	const op = "handlers.Handler.ListProjectStories"
	log := h.logger(c, op)

	projectID, err := parseID(c, "project_id")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	p, err := page(c)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if _, ok := h.projectFor(c, log, projectID, authz.ActionList); !ok {
		return
	}
	stories, total, err := h.store.ListUserStories(c.Request.Context(), projectID, p)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, UserStoryList{UserStories: stories, Total: total})
}

// GetUserStory handles GET /api/v1/user-stories/:id
func (h *Handler) GetUserStory(c *gin.Context) {
	const op = "handlers.Handler.GetUserStory"

	story, ok := h.authorizedStory(c, h.logger(c, op), authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, story)
}

// CreateUserStory handles POST /api/v1/user-stories
func (h *Handler) CreateUserStory(c *gin.Context) {
	const op = "handlers.Handler.CreateUserStory"
	log := h.logger(c, op)

	var req CreateUserStoryRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	if _, ok := h.projectFor(c, log, req.ProjectID, authz.ActionCreate); !ok {
		return
	}

	created := []models.UserStory{{
		Title:              req.Title,
		Description:        req.Description,
		AcceptanceCriteria: req.AcceptanceCriteria,
	}}
	if err := h.store.CreateUserStories(c.Request.Context(), req.ProjectID, created); err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, created[0])
}

// UpdateUserStory handles PUT /api/v1/user-stories/:id
func (h *Handler) UpdateUserStory(c *gin.Context) {
	const op = "handlers.Handler.UpdateUserStory"
	log := h.logger(c, op)

	story, ok := h.authorizedStory(c, log, authz.ActionUpdate)
	if !ok {
		return
	}
	var req UpdateUserStoryRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	updated, err := h.store.UpdateUserStory(c.Request.Context(), story.ID, store.UserStoryPatch{
		Title:              req.Title,
		Description:        req.Description,
		AcceptanceCriteria: req.AcceptanceCriteria,
	})
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteUserStory handles DELETE /api/v1/user-stories/:id
func (h *Handler) DeleteUserStory(c *gin.Context) {
	const op = "handlers.Handler.DeleteUserStory"
	log := h.logger(c, op)

	story, ok := h.authorizedStory(c, log, authz.ActionDelete)
	if !ok {
		return
	}
	if err := h.store.DeleteUserStory(c.Request.Context(), story.ID); err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User story deleted successfully"})
}

// GenerateUserStories handles POST /api/v1/ai/generate-user-stories
func (h *Handler) GenerateUserStories(c *gin.Context) {
	const op = "handlers.Handler.GenerateUserStories"
	log := h.logger(c, op)

	var req GenerateStoriesRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	p, ok := h.projectFor(c, log, req.ProjectID, authz.ActionCreate)
	if !ok {
		return
	}

	res, err := h.stories.Generate(c.Request.Context(), p.ID, req.ProjectDescription)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	if !res.Cached {
		h.hub.Publish(realtime.Event{Type: realtime.StoriesCreated, ProjectID: p.ID, ActorID: middleware.Subject(c).ID}, projectAudience(p)...)
	}
	c.JSON(http.StatusOK, res)
}
