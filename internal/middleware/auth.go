package middleware

import (
	"context"
	"strings"

	"project-management-api/internal/apperrors"
	"project-management-api/internal/authz"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
)

const userKey = "current_user"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	Validate(token string) (uint, error)
}

// UserFinder loads the user a token refers to.
type UserFinder interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// JWTAuthMiddleware authenticates the request from the Authorization header
// or, for websocket clients, the token query parameter.
func JWTAuthMiddleware(tokens TokenValidator, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			scheme, value, ok := strings.Cut(authHeader, " ")
			if ok && strings.EqualFold(scheme, "Bearer") {
				tokenString = strings.TrimSpace(value)
			}
		}
		// Browsers cannot set headers on a websocket upgrade.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			WriteError(c, apperrors.Unauthenticated("Authorization token is required"))
			return
		}

		userID, err := tokens.Validate(tokenString)
		if err != nil {
			WriteError(c, apperrors.Unauthenticated("Could not validate credentials"))
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				err = apperrors.Unauthenticated("Could not validate credentials")
			}
			WriteError(c, err)
			return
		}
		if !user.IsActive {
			WriteError(c, apperrors.Validation("Inactive user"))
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside
// JWTAuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// Subject returns the authorization subject of the request.
func Subject(c *gin.Context) authz.Subject {
	u := CurrentUser(c)
	if u == nil {
		return authz.Subject{}
	}
	return authz.Subject{ID: u.ID, Role: u.Role}
}
