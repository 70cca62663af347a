// Package progress derives goal completion percentages from linked tasks.
package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

// Percent returns round(100*done/total), or 0 when total is 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

// Count returns how many of tasks are done, and the total.
// Only status done counts; solved does not.
func Count(tasks []*models.Task) (done, total int) {
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone {
			done++
		}
	}
	return done, len(tasks)
}

// Calculator persists derived goal progress.
type Calculator struct {
	Now func() time.Time
}

func New() *Calculator {
	return &Calculator{Now: time.Now}
}

func (c *Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Recalculate computes the goal's progress from its current links and
// writes progress and updated_at together. Pass a transaction-bound store
// to keep the write atomic with the mutation that triggered it.
func (c *Calculator) Recalculate(ctx context.Context, s store.Store, goalID int64) (int, error) {
	if _, err := s.GetGoal(ctx, goalID); err != nil {
		return 0, err
	}
	tasks, err := s.ListGoalTasks(ctx, goalID)
	if err != nil {
		return 0, fmt.Errorf("recalculate goal %d: %w", goalID, err)
	}
	pct := Percent(Count(tasks))
	if err := s.UpdateGoalProgress(ctx, goalID, pct, c.now()); err != nil {
		return 0, fmt.Errorf("recalculate goal %d: %w", goalID, err)
	}
	return pct, nil
}

// RecalculateForTask refreshes every goal the task is linked to.
func (c *Calculator) RecalculateForTask(ctx context.Context, s store.Store, taskID int64) error {
	goalIDs, err := s.ListTaskGoalIDs(ctx, taskID)
	if err != nil {
		return fmt.Errorf("recalculate goals for task %d: %w", taskID, err)
	}
	for _, id := range goalIDs {
		if _, err := c.Recalculate(ctx, s, id); err != nil {
			return err
		}
	}
	return nil
}
