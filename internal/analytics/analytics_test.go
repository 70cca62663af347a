package analytics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

// Wednesday afternoon.
var now = time.Date(2026, 4, 15, 15, 0, 0, 0, time.UTC)

func doneTask(id int64, created, completed time.Time) *models.Task {
	return &models.Task{
		ID:          id,
		Name:        fmt.Sprintf("task-%d", id),
		Status:      models.TaskStatusDone,
		Priority:    models.TaskPriorityMedium,
		CreatedAt:   created,
		CompletedAt: &completed,
	}
}

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func event(id string, typ models.ActivityType, metadata string, at time.Time) *models.Activity {
	return &models.Activity{ID: id, Type: typ, Metadata: []byte(metadata), CreatedAt: at}
}

func TestDailySeries_ShapeAndSum(t *testing.T) {
	var tasks []*models.Task
	inWindow := 0
	for i, ago := range []int{0, 0, 1, 5, 29, 30, 45} {
		tasks = append(tasks, doneTask(int64(i+1), daysAgo(ago+1), daysAgo(ago)))
		if ago < 30 {
			inWindow++
		}
	}
	// Not done: never counted even with a timestamp.
	solved := doneTask(99, daysAgo(3), daysAgo(2))
	solved.Status = models.TaskStatusSolved
	tasks = append(tasks, solved)

	r := Compute(tasks, nil, now)
	daily := r.Completions.Daily
	require.Len(t, daily, 30)

	sum := 0
	for i, b := range daily {
		sum += b.Count
		if i > 0 {
			assert.True(t, b.Start.After(daily[i-1].Start), "chronological at %d", i)
		}
	}
	assert.Equal(t, inWindow, sum)
	assert.Equal(t, "2026-04-15", daily[29].Label)
	assert.Equal(t, 2, daily[29].Count)
	assert.Equal(t, 1, daily[28].Count)
	assert.Equal(t, "2026-03-17", daily[0].Label)
	assert.Equal(t, 1, daily[0].Count)
}

func TestDailySeries_EmptyIsZeroFilled(t *testing.T) {
	r := Compute(nil, nil, now)
	require.Len(t, r.Completions.Daily, 30)
	for _, b := range r.Completions.Daily {
		assert.Zero(t, b.Count)
	}
	assert.Len(t, r.Completions.Weekly, 12)
	assert.Len(t, r.Completions.Monthly, 12)
}

func TestWeeklySeries_AlignedToMonday(t *testing.T) {
	tasks := []*models.Task{
		doneTask(1, daysAgo(3), time.Date(2026, 4, 13, 1, 0, 0, 0, time.UTC)), // this Monday
		doneTask(2, daysAgo(3), time.Date(2026, 4, 12, 23, 0, 0, 0, time.UTC)), // previous Sunday
	}
	weekly := Compute(tasks, nil, now).Completions.Weekly
	require.Len(t, weekly, 12)
	assert.Equal(t, "2026-04-13", weekly[11].Label)
	assert.Equal(t, time.Monday, weekly[11].Start.Weekday())
	assert.Equal(t, 1, weekly[11].Count)
	assert.Equal(t, "2026-04-06", weekly[10].Label)
	assert.Equal(t, 1, weekly[10].Count)
	assert.Equal(t, "2026-01-26", weekly[0].Label)
}

func TestMonthlySeries(t *testing.T) {
	tasks := []*models.Task{
		doneTask(1, daysAgo(1), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
		doneTask(2, daysAgo(1), time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)),
		doneTask(3, daysAgo(1), time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC)), // outside
	}
	monthly := Compute(tasks, nil, now).Completions.Monthly
	require.Len(t, monthly, 12)
	assert.Equal(t, "2025-05", monthly[0].Label)
	assert.Equal(t, 1, monthly[0].Count)
	assert.Equal(t, "2026-04", monthly[11].Label)
	assert.Equal(t, 1, monthly[11].Count)
}

func TestProductivityWindows(t *testing.T) {
	tasks := []*models.Task{
		doneTask(1, daysAgo(1), time.Date(2026, 4, 15, 0, 30, 0, 0, time.UTC)),
		doneTask(2, daysAgo(1), time.Date(2026, 4, 14, 23, 30, 0, 0, time.UTC)),
		doneTask(3, daysAgo(10), daysAgo(8)),
		doneTask(4, daysAgo(40), daysAgo(31)),
	}
	p := Compute(tasks, nil, now).Productivity
	assert.Equal(t, 1, p.Today)
	assert.Equal(t, 2, p.ThisWeek)
	assert.Equal(t, 3, p.ThisMonth)
}

func TestAvgCompletionHours_RoundsHalfUp(t *testing.T) {
	created := now.Add(-10 * time.Hour)
	tasks := []*models.Task{doneTask(1, created, created.Add(5*time.Hour+30*time.Minute))}
	assert.Equal(t, 6, Compute(tasks, nil, now).Productivity.AvgCompletionHours)

	tasks = append(tasks, doneTask(2, created, created.Add(time.Hour)))
	// (5.5 + 1) / 2 = 3.25
	assert.Equal(t, 3, Compute(tasks, nil, now).Productivity.AvgCompletionHours)

	assert.Equal(t, 0, Compute(nil, nil, now).Productivity.AvgCompletionHours)
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		days []int
		want int
	}{
		{"none", nil, 0},
		{"gap breaks streak", []int{0, 1, 3}, 2},
		{"empty today keeps streak", []int{1, 2, 3}, 3},
		{"only older days", []int{2, 3}, 0},
		{"today only", []int{0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []*models.Task
			for i, d := range tt.days {
				tasks = append(tasks, doneTask(int64(i+1), daysAgo(d+1), startOfDay(daysAgo(d)).Add(time.Hour)))
			}
			assert.Equal(t, tt.want, Compute(tasks, nil, now).Productivity.Streak)
		})
	}
}

func TestStreak_Capped(t *testing.T) {
	var tasks []*models.Task
	for d := 0; d < 400; d++ {
		tasks = append(tasks, doneTask(int64(d+1), daysAgo(d+1), daysAgo(d)))
	}
	assert.Equal(t, 365, Compute(tasks, nil, now).Productivity.Streak)
}

func TestDistributions(t *testing.T) {
	tasks := []*models.Task{
		{ID: 1, Status: models.TaskStatusInbox, Priority: models.TaskPriorityHigh},
		{ID: 2, Status: models.TaskStatusInProgress, Priority: models.TaskPriorityHigh},
		{ID: 3, Status: models.TaskStatusDone, Priority: models.TaskPriorityUrgent},
		{ID: 4, Status: models.TaskStatusRejected, Priority: models.TaskPriorityLow},
	}
	d := Compute(tasks, nil, now).Distributions

	assert.Equal(t, []KeyCount{
		{Key: "low", Count: 1},
		{Key: "medium", Count: 0},
		{Key: "high", Count: 2},
		{Key: "urgent", Count: 0},
	}, d.Priority)

	require.Len(t, d.Status, 8)
	assert.Equal(t, KeyCount{Key: "inbox", Count: 1}, d.Status[0])
	assert.Equal(t, KeyCount{Key: "done", Count: 1}, d.Status[5])
	assert.Equal(t, KeyCount{Key: "solved", Count: 0}, d.Status[6])
}

func TestAgentStats_ActionsWithoutCompletion(t *testing.T) {
	events := []*models.Activity{
		event("01", models.ActivityTaskCreated, `{"agent":"bulbi","task_id":1}`, daysAgo(1)),
	}
	rating := 5
	task := doneTask(1, daysAgo(2), daysAgo(1))
	task.Rating = &rating

	agents := Compute([]*models.Task{task}, events, now).Agents
	require.Len(t, agents, 1)
	assert.Equal(t, "bulbi", agents[0].Agent)
	assert.Equal(t, 1, agents[0].Actions)
	assert.Zero(t, agents[0].RatedTasks)
	assert.Zero(t, agents[0].AvgRating)
}

func TestAgentStats_OffTypeMetadataStillCounted(t *testing.T) {
	rating := 4
	task := doneTask(7, daysAgo(2), daysAgo(1))
	task.Rating = &rating
	events := []*models.Activity{
		event("01", models.ActivityTaskCreated, `{"agent":"bulbi","task_id":"7"}`, daysAgo(2)),
		event("02", models.ActivityTaskCompleted, `{"agent":"bulbi","task_id":"7"}`, daysAgo(1)),
	}

	agents := Compute([]*models.Task{task}, events, now).Agents
	require.Len(t, agents, 1)
	assert.Equal(t, "bulbi", agents[0].Agent)
	assert.Equal(t, 2, agents[0].Actions)
	assert.Zero(t, agents[0].RatedTasks, "completion without a usable task id is not attributed")
}

func TestAgentStats_RatingAttribution(t *testing.T) {
	r4, r5, r3 := 4, 5, 3
	t1 := doneTask(1, daysAgo(3), daysAgo(1))
	t1.Rating = &r4
	t2 := doneTask(2, daysAgo(3), daysAgo(1))
	t2.Rating = &r5
	t3 := doneTask(3, daysAgo(3), daysAgo(1))
	t3.Rating = &r3

	events := []*models.Activity{
		event("01", models.ActivityTaskCompleted, `{"agent":"bulbi","task_id":1}`, daysAgo(5)),
		// The later completion wins attribution for task 1.
		event("02", models.ActivityTaskCompleted, `{"agent":"squirt","task_id":1}`, daysAgo(1)),
		event("03", models.ActivityTaskCompleted, `{"agent":"squirt","task_id":2}`, daysAgo(2)),
		event("04", models.ActivityTaskCompleted, `{"agent":"bulbi","task_id":3}`, daysAgo(2)),
		event("05", models.ActivityTaskUpdated, `{"agent":"bulbi",`, daysAgo(0)),
		event("06", "agent_heartbeat", `{"agent":"charm"}`, daysAgo(0)),
	}

	agents := Compute([]*models.Task{t1, t2, t3}, events, now).Agents
	require.Len(t, agents, 3)

	assert.Equal(t, "bulbi", agents[0].Agent)
	assert.Equal(t, 2, agents[0].Actions, "malformed event skipped")
	assert.Equal(t, 1, agents[0].RatedTasks)
	assert.Equal(t, 3.0, agents[0].AvgRating)
	assert.True(t, daysAgo(2).Equal(agents[0].LastActive))

	assert.Equal(t, "squirt", agents[1].Agent)
	assert.Equal(t, 2, agents[1].Actions)
	assert.Equal(t, 2, agents[1].RatedTasks)
	assert.Equal(t, 4.5, agents[1].AvgRating)
	assert.True(t, daysAgo(1).Equal(agents[1].LastActive))

	assert.Equal(t, "charm", agents[2].Agent)
	assert.Equal(t, 1, agents[2].Actions)
}

func TestAgentStats_AverageRoundsToOneDecimal(t *testing.T) {
	ratings := []int{5, 4, 4}
	var tasks []*models.Task
	var events []*models.Activity
	for i, r := range ratings {
		r := r
		task := doneTask(int64(i+1), daysAgo(2), daysAgo(1))
		task.Rating = &r
		tasks = append(tasks, task)
		events = append(events, event(fmt.Sprintf("0%d", i), models.ActivityTaskCompleted,
			fmt.Sprintf(`{"agent":"bulbi","task_id":%d}`, i+1), daysAgo(1)))
	}
	agents := Compute(tasks, events, now).Agents
	require.Len(t, agents, 1)
	assert.Equal(t, 4.3, agents[0].AvgRating)
}

func TestActivityBreakdown(t *testing.T) {
	events := []*models.Activity{
		event("01", models.ActivityTaskCreated, `{}`, daysAgo(0)),
		event("02", models.ActivityTaskCreated, `{}`, daysAgo(1)),
		event("03", models.ActivityGoalCreated, `not json`, daysAgo(13)),
		event("04", models.ActivityGoalCreated, `{}`, daysAgo(20)),
		event("05", models.ActivityTaskCompleted, `{}`, daysAgo(2)),
	}
	b := Compute(nil, events, now).Activity

	assert.Equal(t, []KeyCount{
		{Key: "goal_created", Count: 2},
		{Key: "task_created", Count: 2},
		{Key: "task_completed", Count: 1},
	}, b.ByType)

	require.Len(t, b.Trend, 14)
	assert.Equal(t, "2026-04-02", b.Trend[0].Label)
	assert.Equal(t, 1, b.Trend[0].Count)
	assert.Equal(t, 1, b.Trend[13].Count)
	total := 0
	for _, bucket := range b.Trend {
		total += bucket.Count
	}
	assert.Equal(t, 4, total)
}

func TestCompute_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	localNow := time.Date(2026, 4, 15, 10, 0, 0, 0, loc)
	// 2026-04-15 03:00 UTC is the evening of 04-14 in UTC-8.
	completed := time.Date(2026, 4, 15, 3, 0, 0, 0, time.UTC)
	tasks := []*models.Task{doneTask(1, completed.Add(-time.Hour), completed)}

	r := Compute(tasks, nil, localNow)
	assert.Equal(t, 0, r.Completions.Daily[29].Count)
	assert.Equal(t, 1, r.Completions.Daily[28].Count)
	assert.Equal(t, 0, r.Productivity.Today)
	assert.Equal(t, 1, r.Productivity.Streak)
}

func TestEngine_Report(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	rating := 4
	task := doneTask(0, daysAgo(1), daysAgo(0).Add(-time.Hour))
	task.Rating = &rating
	require.NoError(t, s.CreateTask(ctx, task))
	require.NoError(t, s.AppendActivity(ctx, &models.Activity{
		Type:      models.ActivityTaskCompleted,
		Metadata:  []byte(fmt.Sprintf(`{"agent":"bulbi","task_id":%d}`, task.ID)),
		CreatedAt: daysAgo(0).Add(-time.Hour),
	}))

	e := NewEngine(s)
	e.Now = func() time.Time { return now }
	r, err := e.Report(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, r.Productivity.Today)
	assert.Equal(t, 1, r.Productivity.Streak)
	require.Len(t, r.Agents, 1)
	assert.Equal(t, 4.0, r.Agents[0].AvgRating)
	assert.Equal(t, 1, r.Agents[0].RatedTasks)
}
