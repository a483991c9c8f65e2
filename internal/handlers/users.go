package handlers

import (
	"net/http"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/auth"
	"project-management-api/internal/authz"
	"project-management-api/internal/middleware"
	"project-management-api/internal/models"
	"project-management-api/internal/store"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Username string      `json:"username" binding:"required,min=3,max=50"`
	Email    string      `json:"email" binding:"required,email,max=100"`
	FullName string      `json:"full_name" binding:"required,max=100"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     models.Role `json:"role" binding:"omitempty,role"`
	IsActive *bool       `json:"is_active"`
}

type UpdateUserRequest struct {
	Username *string      `json:"username" binding:"omitempty,min=3,max=50"`
	Email    *string      `json:"email" binding:"omitempty,email,max=100"`
	FullName *string      `json:"full_name" binding:"omitempty,max=100"`
	Password *string      `json:"password" binding:"omitempty,min=6"`
	Role     *models.Role `json:"role" binding:"omitempty,role"`
	IsActive *bool        `json:"is_active"`
}

// UserWithProjects is a user together with the projects they take part in.
type UserWithProjects struct {
	*models.User
	ManagedProjects []models.Project `json:"managed_projects"`
	MemberProjects  []models.Project `json:"member_projects"`
}

// Me handles GET /api/v1/users/me
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// ListUsers handles GET /api/v1/users
func (h *Handler) ListUsers(c *gin.Context) {
	const op = "handlers.Handler.ListUsers"
	log := h.logger(c, op)

	if err := authz.Authorize(middleware.Subject(c), authz.ActionList, authz.UserRef{}); err != nil {
		middleware.WriteError(c, err)
		return
	}
	p, err := page(c)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	users, err := h.store.ListUsers(c.Request.Context(), p)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	const op = "handlers.Handler.CreateUser"
	log := h.logger(c, op)

	if err := authz.Authorize(middleware.Subject(c), authz.ActionCreate, authz.UserRef{}); err != nil {
		middleware.WriteError(c, err)
		return
	}
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, log, apperrors.Internal("failed to hash password", err))
		return
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if user.Role == "" {
		user.Role = models.RoleDeveloper
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		h.fail(c, log, err)
		return
	}
	log.WithField("user_id", user.ID).Info("user created")
	c.JSON(http.StatusCreated, user)
}

// GetUser handles GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	const op = "handlers.Handler.GetUser"
	log := h.logger(c, op)

	id, err := parseID(c, "id")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	if err := authz.Authorize(middleware.Subject(c), authz.ActionRead, authz.UserRef{ID: id}); err != nil {
		middleware.WriteError(c, err)
		return
	}

	managed, member, err := h.store.UserProjects(ctx, id)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, UserWithProjects{User: user, ManagedProjects: managed, MemberProjects: member})
}

// UpdateUser handles PUT /api/v1/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	const op = "handlers.Handler.UpdateUser"
	log := h.logger(c, op)

	id, err := parseID(c, "id")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		h.fail(c, log, err)
		return
	}
	if err := authz.Authorize(middleware.Subject(c), authz.ActionUpdate, authz.UserRef{ID: id}); err != nil {
		middleware.WriteError(c, err)
		return
	}
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}

	patch := store.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: req.IsActive,
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.fail(c, log, apperrors.Internal("failed to hash password", err))
			return
		}
		patch.PasswordHash = &hash
	}

	user, err := h.store.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	const op = "handlers.Handler.DeleteUser"
	log := h.logger(c, op)

	id, err := parseID(c, "id")
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), id); err != nil {
		h.fail(c, log, err)
		return
	}
	if err := authz.Authorize(middleware.Subject(c), authz.ActionDelete, authz.UserRef{ID: id}); err != nil {
		middleware.WriteError(c, err)
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, log, err)
		return
	}
	log.WithField("user_id", id).Info("user deleted")
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
