// Package workflow owns task mutations and the side effects of status changes.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/progress"
	"github.com/joescharf/taskboard/internal/store"
)

// Guard validates task mutations, applies status side effects, keeps linked
// goal progress current and records activity once the change has committed.
type Guard struct {
	store    store.Store
	progress *progress.Calculator
	recorder *activity.Recorder
	Now      func() time.Time
}

func NewGuard(s store.Store, calc *progress.Calculator, rec *activity.Recorder) *Guard {
	return &Guard{store: s, progress: calc, recorder: rec, Now: time.Now}
}

func (g *Guard) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// CreateTask validates in and stores a new task in the inbox lane.
func (g *Guard) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	now := g.now().UTC()
	t := &models.Task{
		BoardID:     in.BoardID,
		Name:        in.Name,
		Description: in.Description,
		Status:      models.TaskStatusInbox,
		Priority:    in.Priority,
		Position:    in.Position,
		Deadline:    in.Deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	g.recorder.Record(ctx, fmt.Sprintf("Task created: %s", t.Name), &activity.TaskCreated{
		Actor:    activity.Actor{Agent: in.Agent},
		TaskID:   t.ID,
		Name:     t.Name,
		Priority: t.Priority,
	})
	return t, nil
}

func (g *Guard) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return g.store.GetTask(ctx, id)
}

func (g *Guard) ListTasks(ctx context.Context, filter store.TaskListFilter) ([]*models.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validationf("invalid status filter %q", filter.Status)
	}
	return g.store.ListTasks(ctx, filter)
}

// UpdateTask applies a partial update. The task write and any goal progress
// recalculation it triggers commit together.
func (g *Guard) UpdateTask(ctx context.Context, id int64, p models.TaskPatch) (*models.Task, error) {
	var (
		updated *models.Task
		tr      transition
	)
	err := g.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		tr, err = applyPatch(t, p, g.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, t); err != nil {
			return err
		}
		if tr.affectsProgress() {
			if err := g.progress.RecalculateForTask(ctx, tx, t.ID); err != nil {
				return err
			}
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.recordUpdate(ctx, updated, tr, p.Agent)
	return updated, nil
}

func (g *Guard) recordUpdate(ctx context.Context, t *models.Task, tr transition, agent string) {
	actor := activity.Actor{Agent: agent}
	if tr.statusChanged() {
		g.recorder.Record(ctx, fmt.Sprintf("Task %q moved from %s to %s", t.Name, tr.From, tr.To),
			&activity.TaskStatusChanged{Actor: actor, TaskID: t.ID, From: tr.From, To: tr.To})
	}
	if tr.completed() {
		g.recorder.Record(ctx, fmt.Sprintf("Task completed: %s", t.Name),
			&activity.TaskCompleted{Actor: actor, TaskID: t.ID, Status: t.Status, Rating: t.Rating})
	}
	if tr.rejected() {
		reason := ""
		if t.RejectionReason != nil {
			reason = *t.RejectionReason
		}
		g.recorder.Record(ctx, fmt.Sprintf("Task rejected: %s", t.Name),
			&activity.TaskRejected{Actor: actor, TaskID: t.ID, Reason: reason})
	}
	if len(tr.Fields) > 0 {
		g.recorder.Record(ctx, fmt.Sprintf("Task updated: %s (%s)", t.Name, strings.Join(tr.Fields, ", ")),
			&activity.TaskUpdated{Actor: actor, TaskID: t.ID, Fields: tr.Fields})
	}
}

// DeleteTask removes the task and its goal links, then refreshes the
// progress of every goal it was linked to.
func (g *Guard) DeleteTask(ctx context.Context, id int64, agent string) error {
	var deleted *models.Task
	err := g.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		goalIDs, err := tx.ListTaskGoalIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, id); err != nil {
			return err
		}
		for _, goalID := range goalIDs {
			if _, err := g.progress.Recalculate(ctx, tx, goalID); err != nil {
				return err
			}
		}
		deleted = t
		return nil
	})
	if err != nil {
		return err
	}

	g.recorder.Record(ctx, fmt.Sprintf("Task deleted: %s", deleted.Name), &activity.TaskDeleted{
		Actor:  activity.Actor{Agent: agent},
		TaskID: deleted.ID,
		Name:   deleted.Name,
	})
	return nil
}
