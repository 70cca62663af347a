// Package analytics aggregates task and activity history into completion
// series, distributions, streaks and per-agent attribution.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

// Engine reads a snapshot from the store and computes a Report. It never
// writes.
type Engine struct {
	store store.Store
	Now   func() time.Time
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, Now: time.Now}
}

// Report loads every task and event and computes the analytics snapshot.
func (e *Engine) Report(ctx context.Context) (*Report, error) {
	var (
		tasks  []*models.Task
		events []*models.Activity
	)

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		tasks, err = e.store.ListTasks(ctx, store.TaskListFilter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		events, err = e.store.ListActivity(ctx, store.ActivityListFilter{})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("load analytics snapshot: %w", err)
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	return Compute(tasks, events, now), nil
}
