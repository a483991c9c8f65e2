package middleware

import (
	"errors"
	"net/http"

	"project-management-api/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// WriteError aborts the request with the status mapped from err. Internal
// failures get a generic message and the request id, the cause is kept on
// the gin context for the access log.
func WriteError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperrors.StatusOf(err)
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{
			"error":          "Internal server error",
			"correlation_id": RequestIDOf(c),
		})
		return
	}

	body := gin.H{"error": err.Error()}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Kind == apperrors.KindForbidden {
			body["action"] = appErr.Action
			body["resource"] = appErr.Resource
		}
	}
	c.AbortWithStatusJSON(status, body)
}
