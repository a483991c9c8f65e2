package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"project-management-api/internal/models"
	"project-management-api/internal/store"
	"project-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestID(), JWTAuthMiddleware(testutil.Tokens(), store.New(db)))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "role": Subject(c).Role})
	})
	return r, db
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	r, db := newRouter(t)
	alice := testutil.CreateUser(t, db, "alice_dev", models.RoleDeveloper)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, alice))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ID   uint        `json:"id"`
		Role models.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, alice.ID, body.ID)
	require.Equal(t, models.RoleDeveloper, body.Role)
}

func TestJWTAuthMiddleware_QueryToken(t *testing.T) {
	r, db := newRouter(t)
	alice := testutil.CreateUser(t, db, "alice_dev", models.RoleDeveloper)

	req := httptest.NewRequest(http.MethodGet, "/protected?token="+testutil.Token(t, alice), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_UnknownUser(t *testing.T) {
	r, _ := newRouter(t)
	token, err := testutil.Tokens().Issue(42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_InactiveUser(t *testing.T) {
	r, db := newRouter(t)
	alice := testutil.CreateUser(t, db, "alice_dev", models.RoleDeveloper)
	require.NoError(t, db.Model(alice).Update("is_active", false).Error)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, alice))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
