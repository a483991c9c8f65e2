package handlers

import (
	"net/http"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/auth"
	"project-management-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// LoginRequest accepts a username or an email as the login name, as JSON
// or as an OAuth2 password form.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handlers.Handler.Login"
	log := h.logger(c, op)

	var req LoginRequest
	if err := bind(c, &req); err != nil {
		middleware.WriteError(c, err)
		return
	}

	user, err := h.store.FindUserByLogin(c.Request.Context(), req.Username)
	if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
		h.fail(c, log, err)
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		log.WithField("login", req.Username).Info("rejected credentials")
		middleware.WriteError(c, apperrors.Unauthenticated("Incorrect username or password"))
		return
	}
	if !user.IsActive {
		middleware.WriteError(c, apperrors.Validation("Inactive user"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.fail(c, log, apperrors.Internal("failed to issue token", err))
		return
	}
	log.WithField("user_id", user.ID).Info("user logged in")
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Authenticate returns the middleware that resolves the request's user.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return middleware.JWTAuthMiddleware(h.tokens, h.store)
}
