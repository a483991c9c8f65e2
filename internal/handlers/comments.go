package handlers

import (
	"net/http"

	"project-management-api/internal/authz"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments handles GET /api/v1/tasks/:id/comments
func (h *Handler) ListComments(c *gin.Context) {
	const op = "handlers.Handler.ListComments"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionRead)
	if !ok {
		return
	}
	comments, err := h.store.ListComments(c.Request.Context(), t.ID)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment handles POST /api/v1/tasks/:id/comments
func (h *Handler) CreateComment(c *gin.Context) {
	const op = "handlers.Handler.CreateComment"
	log := h.logger(c, op)

	t, ok := h.authorizedTask(c, log, "id", authz.ActionComment)
	if !ok {
		return
	}
	var req CommentRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}

	subject := middleware.Subject(c)
	comment := &models.TaskComment{Content: req.Content, TaskID: t.ID, AuthorID: subject.ID}
	if err := h.store.CreateComment(c.Request.Context(), comment); err != nil {
		h.fail(c, log, err)
		return
	}
	h.publishTask(realtime.TaskCommented, t, subject.ID)
	c.JSON(http.StatusCreated, comment)
}

// authorizedComment loads the comment named by :id and checks action
// against it and its task.
func (h *Handler) authorizedComment(c *gin.Context, op string, action authz.Action) (*models.TaskComment, bool) {
	log := h.logger(c, op)

	id, err := parseID(c, "id")
	if err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	ctx := c.Request.Context()
	comment, err := h.store.GetComment(ctx, id)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	task, err := h.store.GetTask(ctx, comment.TaskID)
	if err != nil {
		h.fail(c, log, err)
		return nil, false
	}
	ref := authz.CommentRef{ID: comment.ID, AuthorID: comment.AuthorID, Task: authz.TaskRefOf(task)}
	if err := authz.Authorize(middleware.Subject(c), action, ref); err != nil {
		middleware.WriteError(c, err)
		return nil, false
	}
	return comment, true
}

// UpdateComment handles PUT /api/v1/comments/:id
func (h *Handler) UpdateComment(c *gin.Context) {
	const op = "handlers.Handler.UpdateComment"

	comment, ok := h.authorizedComment(c, op, authz.ActionUpdate)
	if !ok {
		return
	}
	var req CommentRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}
	updated, err := h.store.UpdateComment(c.Request.Context(), comment.ID, req.Content)
	if err != nil {
		h.fail(c, h.logger(c, op), err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment handles DELETE /api/v1/comments/:id
func (h *Handler) DeleteComment(c *gin.Context) {
	const op = "handlers.Handler.DeleteComment"

	comment, ok := h.authorizedComment(c, op, authz.ActionDelete)
	if !ok {
		return
	}
	if err := h.store.DeleteComment(c.Request.Context(), comment.ID); err != nil {
		h.fail(c, h.logger(c, op), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
