package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return New(s, nil)
}

func strPtr(s string) *string { return &s }

func TestBoards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateBoard(ctx, "  ", "", "")
	assert.True(t, apperr.IsValidation(err))

	b, err := svc.CreateBoard(ctx, "alpha", "first", "bulbi")
	require.NoError(t, err)

	_, err = svc.UpdateBoard(ctx, b.ID, models.BoardPatch{})
	assert.True(t, apperr.IsValidation(err))

	updated, err := svc.UpdateBoard(ctx, b.ID, models.BoardPatch{Name: models.Some("beta")})
	require.NoError(t, err)
	assert.Equal(t, "beta", updated.Name)
	assert.Equal(t, "first", updated.Description)

	task, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "t", BoardID: &b.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBoard(ctx, b.ID, "bulbi"))
	got, err := svc.Tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BoardID)

	assert.True(t, apperr.IsNotFound(svc.DeleteBoard(ctx, b.ID, "")))
}

func TestCreateGoal_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.GoalInput
	}{
		{"blank title", models.GoalInput{Title: " "}},
		{"bad type", models.GoalInput{Title: "x", Type: "team"}},
		{"agent without id", models.GoalInput{Title: "x", Type: models.GoalTypeAgent}},
		{"agent blank id", models.GoalInput{Title: "x", Type: models.GoalTypeAgent, AgentID: strPtr(" ")}},
		{"global with id", models.GoalInput{Title: "x", Type: models.GoalTypeGlobal, AgentID: strPtr("bulbi")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGoal(ctx, tt.in)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestGoalLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGoal(ctx, models.GoalInput{Title: "ship", Type: models.GoalTypeAgent, AgentID: strPtr("bulbi")})
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusActive, g.Status)
	assert.Equal(t, 0, g.Progress)

	a, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "a"})
	require.NoError(t, err)
	b, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "b"})
	require.NoError(t, err)
	_, err = svc.Links.Link(ctx, g.ID, a.ID, "")
	require.NoError(t, err)
	_, err = svc.Links.Link(ctx, g.ID, b.ID, "")
	require.NoError(t, err)
	_, err = svc.Tasks.UpdateTask(ctx, a.ID, models.TaskPatch{Status: models.Some(models.TaskStatusDone)})
	require.NoError(t, err)

	view, err := svc.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Goal.Progress)
	assert.Len(t, view.Tasks, 2)

	achieved, err := svc.AchieveGoal(ctx, g.ID, "bulbi")
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusAchieved, achieved.Status)
	assert.Equal(t, 100, achieved.Progress)

	// Reopening derives progress from the links again.
	reopened, err := svc.UpdateGoal(ctx, g.ID, models.GoalPatch{Status: models.Some(models.GoalStatusActive)})
	require.NoError(t, err)
	assert.Equal(t, 50, reopened.Progress)

	_, err = svc.UpdateGoal(ctx, g.ID, models.GoalPatch{Type: models.Some(models.GoalTypeGlobal)})
	assert.True(t, apperr.IsValidation(err), "global goal still carries agent_id")

	switched, err := svc.UpdateGoal(ctx, g.ID, models.GoalPatch{
		Type:    models.Some(models.GoalTypeGlobal),
		AgentID: models.Null[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, switched.AgentID)

	_, err = svc.UpdateGoal(ctx, g.ID, models.GoalPatch{Agent: "bulbi"})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.UpdateGoal(ctx, 999, models.GoalPatch{Title: models.Some("x")})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, svc.DeleteGoal(ctx, g.ID, "bulbi"))
	_, err = svc.GetGoal(ctx, g.ID)
	assert.True(t, apperr.IsNotFound(err))

	// Tasks outlive their goal.
	_, err = svc.Tasks.GetTask(ctx, a.ID)
	assert.NoError(t, err)
}

func TestUpdateGoal_RecordsStatusChanges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tick := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	})

	g, err := svc.CreateGoal(ctx, models.GoalInput{Title: "ship"})
	require.NoError(t, err)
	task, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "a"})
	require.NoError(t, err)
	_, err = svc.Links.Link(ctx, g.ID, task.ID, "")
	require.NoError(t, err)

	steps := []models.GoalStatus{models.GoalStatusPaused, models.GoalStatusAchieved, models.GoalStatusActive}
	for _, st := range steps {
		_, err := svc.UpdateGoal(ctx, g.ID, models.GoalPatch{Status: models.Some(st), Agent: "bulbi"})
		require.NoError(t, err)
	}

	events, err := svc.Activity.List(ctx, store.ActivityListFilter{Type: models.ActivityGoalStatusChanged})
	require.NoError(t, err)
	require.Len(t, events, 3)

	var got []activity.GoalStatusChanged
	for i := len(events) - 1; i >= 0; i-- {
		md, err := activity.Decode(events[i].Type, events[i].Metadata)
		require.NoError(t, err)
		changed, ok := md.(*activity.GoalStatusChanged)
		require.True(t, ok)
		assert.Equal(t, "bulbi", changed.AgentID())
		got = append(got, *changed)
	}
	assert.Equal(t, models.GoalStatusActive, got[0].From)
	assert.Equal(t, models.GoalStatusPaused, got[0].To)
	assert.Equal(t, models.GoalStatusAchieved, got[1].To)
	assert.Equal(t, 100, got[1].Progress)
	assert.Equal(t, models.GoalStatusAchieved, got[2].From)
	assert.Equal(t, models.GoalStatusActive, got[2].To)
	assert.Equal(t, 0, got[2].Progress, "reopening recomputes from links")

	achieved, err := svc.Activity.List(ctx, store.ActivityListFilter{Type: models.ActivityGoalAchieved})
	require.NoError(t, err)
	assert.Len(t, achieved, 1)

	// Re-sending the current status is not a transition.
	_, err = svc.UpdateGoal(ctx, g.ID, models.GoalPatch{Status: models.Some(models.GoalStatusActive)})
	require.NoError(t, err)
	events, err = svc.Activity.List(ctx, store.ActivityListFilter{Type: models.ActivityGoalStatusChanged})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestListGoals_Filters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGoal(ctx, models.GoalInput{Title: "global"})
	require.NoError(t, err)
	_, err = svc.CreateGoal(ctx, models.GoalInput{Title: "mine", Type: models.GoalTypeAgent, AgentID: strPtr("bulbi")})
	require.NoError(t, err)

	agentGoals, err := svc.ListGoals(ctx, store.GoalListFilter{Type: models.GoalTypeAgent})
	require.NoError(t, err)
	require.Len(t, agentGoals, 1)
	assert.Equal(t, "mine", agentGoals[0].Title)

	_, err = svc.ListGoals(ctx, store.GoalListFilter{Status: "done"})
	assert.True(t, apperr.IsValidation(err))
}

func TestListActivity_Entries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	_, err := svc.CreateBoard(ctx, "alpha", "", "bulbi")
	require.NoError(t, err)
	require.NoError(t, svc.Store().AppendActivity(ctx, &models.Activity{
		Type:      models.ActivityTaskUpdated,
		Message:   "imported",
		Metadata:  []byte(`{broken`),
		CreatedAt: fixed.Add(time.Minute),
	}))

	entries, err := svc.ListActivity(ctx, store.ActivityListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "imported", entries[0].Message)
	assert.JSONEq(t, `"{broken"`, string(entries[0].Metadata))
	assert.Empty(t, entries[0].Agent)
	assert.Equal(t, "bulbi", entries[1].Agent)
	assert.True(t, fixed.Equal(entries[1].CreatedAt))
}

func TestReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fixed := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return fixed })

	task, err := svc.Tasks.CreateTask(ctx, models.TaskInput{Name: "x", Agent: "bulbi"})
	require.NoError(t, err)
	_, err = svc.Tasks.UpdateTask(ctx, task.ID, models.TaskPatch{
		Status: models.Some(models.TaskStatusDone),
		Rating: models.Some(4),
		Agent:  "bulbi",
	})
	require.NoError(t, err)

	r, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Productivity.Today)
	require.Len(t, r.Agents, 1)
	assert.Equal(t, "bulbi", r.Agents[0].Agent)
	assert.Equal(t, 4, r.Agents[0].Actions)
	assert.Equal(t, 4.0, r.Agents[0].AvgRating)
}
