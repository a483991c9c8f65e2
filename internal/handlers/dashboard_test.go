package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"project-management-api/internal/handlers"
	"project-management-api/internal/models"
	"project-management-api/internal/stats"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	s := newServer(t, nil)
	p := testutil.CreateProject(t, s.db, "Website", s.manager, s.bob)
	testutil.CreateTask(t, s.db, "a", p, s.bob, models.StatusDone)
	testutil.CreateTask(t, s.db, "b", p, nil, models.StatusTodo)
	testutil.CreateTask(t, s.db, "c", p, s.bob, models.StatusInProgress)

	w := s.do(s.bob, http.MethodGet, "/api/v1/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[stats.Dashboard](t, w)
	require.Equal(t, stats.Overview{TotalProjects: 1, ActiveProjects: 1, TotalTasks: 3, MyTasks: 2, MyCompletedTasks: 1}, got.Overview)
	require.Equal(t, stats.TaskDistribution{Todo: 1, InProgress: 1, Completed: 1}, got.TaskDistribution)
	require.Len(t, got.ProjectProgress, 1)
	require.Equal(t, 33.33, got.ProjectProgress[0].Progress)

	w = s.do(s.alice, http.MethodGet, "/api/v1/dashboard/stats", nil)
	got = decode[stats.Dashboard](t, w)
	require.Zero(t, got.Overview.TotalTasks)
	require.Empty(t, got.ProjectProgress)
}

func TestRecentActivity(t *testing.T) {
	s := newServer(t, nil)
	p := testutil.CreateProject(t, s.db, "Website", s.manager, s.bob)
	testutil.CreateTask(t, s.db, "a", p, s.bob, models.StatusDone)
	testutil.CreateTask(t, s.db, "b", p, nil, models.StatusTodo)

	w := s.do(s.manager, http.MethodGet, "/api/v1/dashboard/recent-activity?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]stats.Activity](t, w)
	require.Len(t, got, 1)
	require.Equal(t, "Website", got[0].ProjectName)
}

func TestGenerateUserStories(t *testing.T) {
	gen := &fakeGenerator{lines: []string{
		"As a user, I want to log in, so that I can access my data",
		"way too short",
	}}
	s := newServer(t, gen)
	p := testutil.CreateProject(t, s.db, "Website", s.manager, s.bob)
	body := map[string]any{"project_description": "An online shop", "project_id": p.ID}

	w := s.do(s.bob, http.MethodPost, "/api/v1/ai/generate-user-stories", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(s.manager, http.MethodPost, "/api/v1/ai/generate-user-stories", map[string]any{"project_description": "x", "project_id": 999})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(s.manager, http.MethodPost, "/api/v1/ai/generate-user-stories", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		UserStories      []string           `json:"user_stories"`
		GeneratedStories []models.UserStory `json:"generated_stories"`
	}](t, w)
	require.Len(t, res.UserStories, 2)
	require.Len(t, res.GeneratedStories, 1)
	require.Equal(t, "As a user, I want to log in", res.GeneratedStories[0].Title)

	w = s.do(s.bob, http.MethodGet, fmt.Sprintf("/api/v1/user-stories/project/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[handlers.UserStoryList](t, w)
	require.EqualValues(t, 1, list.Total)
}

func TestGenerateUserStories_Failures(t *testing.T) {
	s := newServer(t, nil)
	p := testutil.CreateProject(t, s.db, "Website", s.manager)
	body := map[string]any{"project_description": "An online shop", "project_id": p.ID}

	w := s.do(s.manager, http.MethodPost, "/api/v1/ai/generate-user-stories", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	s = newServer(t, &fakeGenerator{err: errors.New("upstream down")})
	p = testutil.CreateProject(t, s.db, "Website", s.manager)
	body["project_id"] = p.ID
	w = s.do(s.manager, http.MethodPost, "/api/v1/ai/generate-user-stories", body)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.NotContains(t, w.Body.String(), "upstream down")

	var n int64
	require.NoError(t, s.db.Model(&models.UserStory{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestUserStories_CRUD(t *testing.T) {
	s := newServer(t, nil)
	p := testutil.CreateProject(t, s.db, "Website", s.manager, s.bob)

	w := s.do(s.bob, http.MethodPost, "/api/v1/user-stories", map[string]any{"title": "t", "description": "d", "project_id": p.ID})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(s.manager, http.MethodPost, "/api/v1/user-stories", map[string]any{"title": "t", "description": "d", "project_id": p.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	story := decode[models.UserStory](t, w)
	path := fmt.Sprintf("/api/v1/user-stories/%d", story.ID)

	w = s.do(s.bob, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(s.alice, http.MethodGet, path, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(s.manager, http.MethodPut, path, map[string]any{"acceptance_criteria": "works"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.UserStory](t, w)
	require.Equal(t, "t", updated.Title)
	require.Equal(t, "works", *updated.AcceptanceCriteria)

	w = s.do(s.manager, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(s.manager, http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateUserStories_RepeatWithinWindowPublishesOnce(t *testing.T) {
	gen := &fakeGenerator{lines: []string{"As a user, I want to log in, so that I can access my data"}}
	s := newServer(t, gen)
	p := testutil.CreateProject(t, s.db, "Website", s.manager, s.bob)
	events := &eventRecorder{}
	s.hub.Register(s.manager.ID, events)
	body := map[string]any{"project_description": "An online shop", "project_id": p.ID}

	for i := 0; i < 2; i++ {
		w := s.do(s.manager, http.MethodPost, "/api/v1/ai/generate-user-stories", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Contains(t, w.Body.String(), "As a user, I want to log in")
		require.NotContains(t, w.Body.String(), "cached")
	}

	require.Equal(t, 1, events.count())
	var n int64
	require.NoError(t, s.db.Model(&models.UserStory{}).Count(&n).Error)
	require.EqualValues(t, 1, n)
}
