package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"project-management-api/internal/handlers"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice_dev", "password": testutil.TestPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handlers.TokenResponse](t, w)
	require.Equal(t, "bearer", resp.TokenType)
	id, err := testutil.Tokens().Validate(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, s.alice.ID, id)
}

func TestLogin_ByEmailForm(t *testing.T) {
	s := newServer(t, nil)

	form := url.Values{"username": {"alice_dev@example.com"}, "password": {testutil.TestPassword}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice_dev", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "nobody", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice_dev"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InactiveUser(t *testing.T) {
	s := newServer(t, nil)
	require.NoError(t, s.db.Model(s.alice).Update("is_active", false).Error)

	w := s.do(nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice_dev", "password": testutil.TestPassword})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(s.bob, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	require.Equal(t, s.bob.ID, me.ID)
	require.Equal(t, models.RoleDeveloper, me.Role)
	require.NotContains(t, w.Body.String(), "hashed_password")
}
