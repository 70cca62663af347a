package activity

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDecode_Variants(t *testing.T) {
	md, err := Decode(models.ActivityTaskCompleted, []byte(`{"agent":"bulbi","task_id":7,"status":"done","rating":4}`))
	require.NoError(t, err)
	completed, ok := md.(*TaskCompleted)
	require.True(t, ok)
	assert.Equal(t, "bulbi", completed.AgentID())
	assert.Equal(t, int64(7), completed.TaskID)
	require.NotNil(t, completed.Rating)
	assert.Equal(t, 4, *completed.Rating)

	md, err = Decode(models.ActivityTaskStatusChanged, []byte(`{"task_id":3,"from":"inbox","to":"testing"}`))
	require.NoError(t, err)
	changed := md.(*TaskStatusChanged)
	assert.Equal(t, models.TaskStatusInbox, changed.From)
	assert.Equal(t, models.TaskStatusTesting, changed.To)
	assert.Empty(t, changed.AgentID())
}

func TestDecode_EmptyMetadata(t *testing.T) {
	md, err := Decode(models.ActivityBoardCreated, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityBoardCreated, md.Type())
	assert.Empty(t, md.AgentID())
}

func TestDecode_UnknownTypeIsGeneric(t *testing.T) {
	md, err := Decode("agent_heartbeat", []byte(`{"agent":"squirt","cpu":0.4}`))
	require.NoError(t, err)
	g, ok := md.(Generic)
	require.True(t, ok)
	assert.Equal(t, models.ActivityType("agent_heartbeat"), g.Type())
	assert.Equal(t, "squirt", g.AgentID())

	md, err = Decode("agent_heartbeat", []byte(`{"agent":42}`))
	require.NoError(t, err)
	assert.Empty(t, md.AgentID(), "non-string agent is ignored")
}

func TestDecode_OffTypeFieldFallsBackToGeneric(t *testing.T) {
	md, err := Decode(models.ActivityTaskCreated, []byte(`{"agent":"bulbi","task_id":"7"}`))
	require.NoError(t, err)
	g, ok := md.(Generic)
	require.True(t, ok)
	assert.Equal(t, models.ActivityTaskCreated, g.Type())
	assert.Equal(t, "bulbi", g.AgentID())
	assert.Equal(t, "7", g.Fields["task_id"])
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(models.ActivityTaskCreated, []byte(`{not json`))
	assert.Error(t, err)

	_, err = Decode("custom", []byte(`[1,2`))
	assert.Error(t, err)
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	rating := 5
	raw, err := Encode(&TaskCompleted{Actor: Actor{Agent: "bulbi"}, TaskID: 9, Status: models.TaskStatusSolved, Rating: &rating})
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent":"bulbi","task_id":9,"status":"solved","rating":5}`, string(raw))

	raw, err = Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestRecorder_Record(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := NewRecorder(s, nil)
	fixed := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	r.Now = func() time.Time { return fixed }

	r.Record(ctx, "Task created: write docs", &TaskCreated{Actor: Actor{Agent: "bulbi"}, TaskID: 1, Name: "write docs"})

	events, err := r.List(ctx, store.ActivityListFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActivityTaskCreated, events[0].Type)
	assert.Equal(t, "Task created: write docs", events[0].Message)
	assert.True(t, fixed.Equal(events[0].CreatedAt))
	assert.JSONEq(t, `{"agent":"bulbi","task_id":1,"name":"write docs","priority":""}`, string(events[0].Metadata))
}

func TestRecorder_FailureIsLoggedNotReturned(t *testing.T) {
	s := newTestStore(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := NewRecorder(s, logger)
	require.NoError(t, s.Close())

	assert.NotPanics(t, func() {
		r.Record(context.Background(), "lost", &BoardCreated{BoardID: 1, Name: "alpha"})
	})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "activity append failed")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Record(context.Background(), "x", &GoalAchieved{GoalID: 1})
	})
}
