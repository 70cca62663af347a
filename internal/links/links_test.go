package links

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
	"github.com/joescharf/taskboard/internal/progress"
	"github.com/joescharf/taskboard/internal/store"
	"github.com/joescharf/taskboard/internal/workflow"
)

type fixture struct {
	store *store.SQLiteStore
	links *Manager
	guard *workflow.Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	calc := progress.New()
	rec := activity.NewRecorder(s, nil)
	return &fixture{
		store: s,
		links: NewManager(s, calc, rec),
		guard: workflow.NewGuard(s, calc, rec),
	}
}

func (f *fixture) goal(t *testing.T, title string) *models.Goal {
	t.Helper()
	g := &models.Goal{Title: title, Type: models.GoalTypeGlobal, Status: models.GoalStatusActive}
	require.NoError(t, f.store.CreateGoal(context.Background(), g))
	return g
}

func (f *fixture) task(t *testing.T, name string) *models.Task {
	t.Helper()
	task, err := f.guard.CreateTask(context.Background(), models.TaskInput{Name: name})
	require.NoError(t, err)
	return task
}

func (f *fixture) progressOf(t *testing.T, goalID int64) int {
	t.Helper()
	g, err := f.store.GetGoal(context.Background(), goalID)
	require.NoError(t, err)
	return g.Progress
}

func TestProgressScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "release")
	assert.Equal(t, 0, f.progressOf(t, g.ID))

	a := f.task(t, "a")
	b := f.task(t, "b")

	view, err := f.links.Link(ctx, g.ID, a.ID, "bulbi")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Goal.Progress)
	assert.Len(t, view.Tasks, 1)

	view, err = f.links.Link(ctx, g.ID, b.ID, "bulbi")
	require.NoError(t, err)
	assert.Len(t, view.Tasks, 2)

	_, err = f.guard.UpdateTask(ctx, a.ID, models.TaskPatch{Status: models.Some(models.TaskStatusDone)})
	require.NoError(t, err)
	assert.Equal(t, 50, f.progressOf(t, g.ID))

	goal, err := f.links.Unlink(ctx, g.ID, a.ID, "bulbi")
	require.NoError(t, err)
	assert.Equal(t, 0, goal.Progress)
	assert.Equal(t, 0, f.progressOf(t, g.ID))
}

func TestLink_DuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	a := f.task(t, "a")

	_, err := f.links.Link(ctx, g.ID, a.ID, "")
	require.NoError(t, err)

	_, err = f.links.Link(ctx, g.ID, a.ID, "")
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	tasks, err := f.links.ListLinkedTasks(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestLink_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	a := f.task(t, "a")

	_, err := f.links.Link(ctx, 999, a.ID, "")
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.links.Link(ctx, g.ID, 999, "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUnlink_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	a := f.task(t, "a")

	_, err := f.links.Unlink(ctx, 999, a.ID, "")
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.links.Unlink(ctx, g.ID, a.ID, "")
	assert.True(t, apperr.IsNotFound(err), "unlinked pair")
}

func TestListLinkedTasks_Order(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(name string, pos int, created time.Time) *models.Task {
		task := &models.Task{Name: name, Status: models.TaskStatusInbox, Priority: models.TaskPriorityLow, Position: pos, CreatedAt: created}
		require.NoError(t, f.store.CreateTask(ctx, task))
		_, err := f.links.Link(ctx, g.ID, task.ID, "")
		require.NoError(t, err)
		return task
	}
	mk("second-pos", 2, base)
	mk("older", 0, base)
	mk("newer", 0, base.Add(time.Minute))

	tasks, err := f.links.ListLinkedTasks(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "newer", tasks[0].Name)
	assert.Equal(t, "older", tasks[1].Name)
	assert.Equal(t, "second-pos", tasks[2].Name)

	_, err = f.links.ListLinkedTasks(ctx, 999)
	assert.True(t, apperr.IsNotFound(err))
}

func TestLink_RecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	a := f.task(t, "a")
	_, err := f.links.Link(ctx, g.ID, a.ID, "bulbi")
	require.NoError(t, err)
	_, err = f.links.Unlink(ctx, g.ID, a.ID, "bulbi")
	require.NoError(t, err)

	events, err := f.store.ListActivity(ctx, store.ActivityListFilter{Agent: "bulbi"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	types := []models.ActivityType{events[0].Type, events[1].Type}
	assert.ElementsMatch(t, []models.ActivityType{models.ActivityGoalTaskLinked, models.ActivityGoalTaskUnlinked}, types)
}

// Progress equals round(100*done/total) after any sequence of link changes.
func TestProgressInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.goal(t, "g")
	var tasks []*models.Task
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		task := f.task(t, name)
		if i%3 == 0 {
			_, err := f.guard.UpdateTask(ctx, task.ID, models.TaskPatch{Status: models.Some(models.TaskStatusDone)})
			require.NoError(t, err)
		}
		tasks = append(tasks, task)
	}

	linked := map[int64]bool{}
	check := func() {
		linkedTasks, err := f.links.ListLinkedTasks(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, progress.Percent(progress.Count(linkedTasks)), f.progressOf(t, g.ID))
	}

	ops := []struct {
		idx  int
		link bool
	}{{0, true}, {1, true}, {2, true}, {0, false}, {3, true}, {4, true}, {6, true}, {1, false}, {5, true}, {0, true}}
	for _, op := range ops {
		id := tasks[op.idx].ID
		if op.link {
			_, err := f.links.Link(ctx, g.ID, id, "")
			require.NoError(t, err)
			linked[id] = true
		} else {
			_, err := f.links.Unlink(ctx, g.ID, id, "")
			require.NoError(t, err)
			delete(linked, id)
		}
		check()
	}
	assert.Len(t, linked, 7-1)
}
