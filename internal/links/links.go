// Package links maintains goal-task associations and keeps goal progress in
// step with them.
package links

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/progress"
	"github.com/joescharf/taskboard/internal/store"
)

// Manager links tasks to goals. Every link change and the progress
// recalculation it triggers commit in one transaction, so the returned
// goal never carries a stale percentage.
type Manager struct {
	store    store.Store
	progress *progress.Calculator
	recorder *activity.Recorder
	Now      func() time.Time
}

func NewManager(s store.Store, calc *progress.Calculator, rec *activity.Recorder) *Manager {
	return &Manager{store: s, progress: calc, recorder: rec, Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Link associates taskID with goalID and returns the refreshed goal view.
// It fails with NotFound if either side is missing and Conflict if the
// pair is already linked.
func (m *Manager) Link(ctx context.Context, goalID, taskID int64, agent string) (*models.GoalView, error) {
	var (
		view *models.GoalView
		task *models.Task
	)
	err := m.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetGoal(ctx, goalID); err != nil {
			return err
		}
		t, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := tx.LinkTask(ctx, goalID, taskID, m.now()); err != nil {
			return err
		}
		if _, err := m.progress.Recalculate(ctx, tx, goalID); err != nil {
			return err
		}
		view, err = loadView(ctx, tx, goalID)
		task = t
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("task linked", "goal", goalID, "task", taskID, "progress", view.Goal.Progress)
	m.recorder.Record(ctx, fmt.Sprintf("Task %q linked to goal %q", task.Name, view.Goal.Title), &activity.GoalTaskLinked{
		Actor:    activity.Actor{Agent: agent},
		GoalID:   goalID,
		TaskID:   taskID,
		Progress: view.Goal.Progress,
	})
	return view, nil
}

// Unlink removes the association and returns the goal with its recalculated
// progress. It fails with NotFound if the goal or the pair is missing.
func (m *Manager) Unlink(ctx context.Context, goalID, taskID int64, agent string) (*models.Goal, error) {
	var goal *models.Goal
	err := m.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetGoal(ctx, goalID); err != nil {
			return err
		}
		if err := tx.UnlinkTask(ctx, goalID, taskID); err != nil {
			return err
		}
		if _, err := m.progress.Recalculate(ctx, tx, goalID); err != nil {
			return err
		}
		var err error
		goal, err = tx.GetGoal(ctx, goalID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.recorder.Record(ctx, fmt.Sprintf("Task %d unlinked from goal %q", taskID, goal.Title), &activity.GoalTaskUnlinked{
		Actor:    activity.Actor{Agent: agent},
		GoalID:   goalID,
		TaskID:   taskID,
		Progress: goal.Progress,
	})
	return goal, nil
}

// ListLinkedTasks returns the goal's tasks by position, newest first within
// a position. It fails with NotFound if the goal is missing.
func (m *Manager) ListLinkedTasks(ctx context.Context, goalID int64) ([]*models.Task, error) {
	if _, err := m.store.GetGoal(ctx, goalID); err != nil {
		return nil, err
	}
	return m.store.ListGoalTasks(ctx, goalID)
}

// View returns the goal together with its linked tasks.
func (m *Manager) View(ctx context.Context, goalID int64) (*models.GoalView, error) {
	return loadView(ctx, m.store, goalID)
}

func loadView(ctx context.Context, s store.Store, goalID int64) (*models.GoalView, error) {
	goal, err := s.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ListGoalTasks(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return &models.GoalView{Goal: goal, Tasks: tasks}, nil
}
