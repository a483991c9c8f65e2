package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"project-management-api/internal/handlers"
	"project-management-api/internal/logger"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/routes"
	"project-management-api/internal/stats"
	"project-management-api/internal/store"
	"project-management-api/internal/stories"
	"project-management-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	lines []string
	err   error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) ([]string, error) {
	return g.lines, g.err
}

type eventRecorder struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *eventRecorder) Send(message []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
	return true
}

func (r *eventRecorder) Close() {}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type server struct {
	t       *testing.T
	router  *gin.Engine
	db      *gorm.DB
	hub     *realtime.Hub
	admin   *models.User
	manager *models.User
	other   *models.User
	alice   *models.User
	bob     *models.User
}

func init() {
	if err := handlers.RegisterValidators(); err != nil {
		panic(err)
	}
}

// newServer seeds an admin, two managers and two developers. bob is a
// member of the manager's projects created by the tests, alice is not.
func newServer(t *testing.T, gen stories.Generator) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	log := logger.Discard()
	st := store.New(db)
	hub := realtime.NewHub(log)
	h := handlers.New(handlers.Deps{
		Store:   st,
		Tokens:  testutil.Tokens(),
		Stats:   stats.NewEngine(st),
		Stories: stories.NewService(gen, st, stories.Options{DedupeTTL: time.Minute}, log),
		Hub:     hub,
		Log:     log,
	})

	s := &server{
		t:      t,
		router: routes.SetupRoutes(h, routes.Options{CORSOrigins: []string{"*"}, Log: log}),
		db:     db,
		hub:    hub,
	}
	s.admin = testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	s.manager = testutil.CreateUser(t, db, "john_manager", models.RoleProjectManager)
	s.other = testutil.CreateUser(t, db, "other_manager", models.RoleProjectManager)
	s.alice = testutil.CreateUser(t, db, "alice_dev", models.RoleDeveloper)
	s.bob = testutil.CreateUser(t, db, "bob_dev", models.RoleDeveloper)
	return s
}

func (s *server) do(user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(s.t, user))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
