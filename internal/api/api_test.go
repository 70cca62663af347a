package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/taskboard/internal/analytics"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
	"github.com/joescharf/taskboard/internal/tracker"
)

func setupTestServer(t *testing.T) (http.Handler, *tracker.Service) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	svc := tracker.New(s, nil)
	srv := NewServer(svc, nil, nil)
	return srv.Router(), svc
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestListTasks_Empty(t *testing.T) {
	router, _ := setupTestServer(t)

	w := do(t, router, "GET", "/api/v1/tasks", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTaskCRUD_API(t *testing.T) {
	router, _ := setupTestServer(t)

	w := do(t, router, "POST", "/api/v1/tasks", `{"name":"write docs","priority":"high","agent":"bulbi"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Task](t, w)
	assert.Equal(t, "write docs", created.Name)
	assert.Equal(t, models.TaskStatusInbox, created.Status)

	path := fmt.Sprintf("/api/v1/tasks/%d", created.ID)

	w = do(t, router, "GET", path, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "PATCH", path, `{"status":"done","rating":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[models.Task](t, w)
	assert.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 5, *done.Rating)

	w = do(t, router, "PATCH", path, `{"status":"rejected","rejection_reason":"dup"}`)
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decode[models.Task](t, w)
	assert.Nil(t, rejected.Rating)
	assert.Nil(t, rejected.CompletedAt)
	require.NotNil(t, rejected.RejectionReason)

	w = do(t, router, "GET", "/api/v1/tasks?status=rejected", "")
	assert.Len(t, decode[[]models.Task](t, w), 1)

	w = do(t, router, "DELETE", path+"?agent=bulbi", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskErrors_API(t *testing.T) {
	router, _ := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"blank name", "POST", "/api/v1/tasks", `{"name":"  "}`, http.StatusBadRequest},
		{"bad json", "POST", "/api/v1/tasks", `{`, http.StatusBadRequest},
		{"bad id", "GET", "/api/v1/tasks/abc", "", http.StatusBadRequest},
		{"missing task", "PATCH", "/api/v1/tasks/999", `{"status":"done"}`, http.StatusNotFound},
		{"bad status filter", "GET", "/api/v1/tasks?status=archived", "", http.StatusBadRequest},
		{"bad board filter", "GET", "/api/v1/tasks?board_id=x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w))
		})
	}
}

func TestUpdateTask_Validation_API(t *testing.T) {
	router, svc := setupTestServer(t)

	task, err := svc.Tasks.CreateTask(context.Background(), models.TaskInput{Name: "x"})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/v1/tasks/%d", task.ID)

	w := do(t, router, "PATCH", path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "PATCH", path, `{"agent":"bulbi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "agent alone is not an updatable field")

	w = do(t, router, "PATCH", path, `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "PATCH", path, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoalLinkFlow_API(t *testing.T) {
	router, svc := setupTestServer(t)
	ctx := context.Background()

	w := do(t, router, "POST", "/api/v1/goals", `{"title":"release"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goal := decode[models.Goal](t, w)
	assert.Equal(t, 0, goal.Progress)

	a, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "a"})
	require.NoError(t, err)
	b, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "b"})
	require.NoError(t, err)

	linkPath := fmt.Sprintf("/api/v1/goals/%d/tasks", goal.ID)
	for _, id := range []int64{a.ID, b.ID} {
		w = do(t, router, "POST", linkPath, fmt.Sprintf(`{"task_id":%d}`, id))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = do(t, router, "POST", linkPath, fmt.Sprintf(`{"task_id":%d}`, a.ID))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, "POST", linkPath, `{"task_id":999}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "POST", linkPath, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "PATCH", fmt.Sprintf("/api/v1/tasks/%d", a.ID), `{"status":"done"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", fmt.Sprintf("/api/v1/goals/%d", goal.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.GoalView](t, w)
	assert.Equal(t, 50, view.Goal.Progress)
	assert.Len(t, view.Tasks, 2)

	w = do(t, router, "DELETE", fmt.Sprintf("%s/%d", linkPath, a.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.Goal](t, w).Progress)

	w = do(t, router, "DELETE", fmt.Sprintf("%s/%d", linkPath, a.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "GET", linkPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Task](t, w), 1)

	w = do(t, router, "GET", "/api/v1/goals/999/tasks", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "POST", fmt.Sprintf("/api/v1/goals/%d/achieve", goal.ID), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	achieved := decode[models.Goal](t, w)
	assert.Equal(t, models.GoalStatusAchieved, achieved.Status)
	assert.Equal(t, 100, achieved.Progress)
}

func TestListGoals_Filters_API(t *testing.T) {
	router, _ := setupTestServer(t)

	w := do(t, router, "POST", "/api/v1/goals", `{"title":"mine","type":"agent","agent_id":"bulbi"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, router, "POST", "/api/v1/goals", `{"title":"ours"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, "POST", "/api/v1/goals", `{"title":"bad","type":"agent"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/api/v1/goals?agent_id=bulbi", "")
	require.Equal(t, http.StatusOK, w.Code)
	goals := decode[[]models.Goal](t, w)
	require.Len(t, goals, 1)
	assert.Equal(t, "mine", goals[0].Title)

	w = do(t, router, "GET", "/api/v1/goals?type=global", "")
	assert.Len(t, decode[[]models.Goal](t, w), 1)

	w = do(t, router, "GET", "/api/v1/goals?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoards_API(t *testing.T) {
	router, _ := setupTestServer(t)

	w := do(t, router, "POST", "/api/v1/boards", `{"name":"alpha"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	board := decode[models.Board](t, w)

	w = do(t, router, "POST", "/api/v1/tasks", fmt.Sprintf(`{"name":"t","board_id":%d}`, board.ID))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, router, "GET", fmt.Sprintf("/api/v1/tasks?board_id=%d", board.ID), "")
	assert.Len(t, decode[[]models.Task](t, w), 1)

	w = do(t, router, "PATCH", fmt.Sprintf("/api/v1/boards/%d", board.ID), `{"description":"desc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "desc", decode[models.Board](t, w).Description)

	w = do(t, router, "GET", "/api/v1/boards", "")
	assert.Len(t, decode[[]models.Board](t, w), 1)

	w = do(t, router, "DELETE", fmt.Sprintf("/api/v1/boards/%d", board.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "POST", "/api/v1/tasks", fmt.Sprintf(`{"name":"t","board_id":%d}`, board.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityAndAnalytics_API(t *testing.T) {
	router, svc := setupTestServer(t)
	ctx := context.Background()

	task, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "x", Agent: "bulbi"})
	require.NoError(t, err)
	_, err = svc.Tasks.UpdateTask(ctx, task.ID, models.TaskPatch{Status: models.Some(models.TaskStatusDone), Agent: "bulbi"})
	require.NoError(t, err)

	w := do(t, router, "GET", "/api/v1/activity?agent=bulbi", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]any](t, w)
	assert.Len(t, entries, 3)

	w = do(t, router, "GET", "/api/v1/activity?type=task_completed&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = do(t, router, "GET", "/api/v1/activity?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/api/v1/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[analytics.Report](t, w)
	assert.Len(t, report.Completions.Daily, 30)
	assert.Equal(t, 1, report.Productivity.Today)
	require.Len(t, report.Agents, 1)
	assert.Equal(t, 3, report.Agents[0].Actions)
}

func TestCORS_Preflight(t *testing.T) {
	router, _ := setupTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
