// Package tracker is the application service behind the CLI, HTTP API and
// MCP server. It owns board and goal CRUD and exposes the task workflow,
// link manager, activity log and analytics engine.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/analytics"
	"github.com/joescharf/taskboard/internal/links"
	"github.com/joescharf/taskboard/internal/progress"
	"github.com/joescharf/taskboard/internal/store"
	"github.com/joescharf/taskboard/internal/workflow"
)

type Service struct {
	store     store.Store
	progress  *progress.Calculator
	Tasks     *workflow.Guard
	Links     *links.Manager
	Activity  *activity.Recorder
	Analytics *analytics.Engine
	now       func() time.Time
}

// New wires every component against s. A nil logger uses slog.Default.
func New(s store.Store, logger *slog.Logger) *Service {
	calc := progress.New()
	rec := activity.NewRecorder(s, logger)
	return &Service{
		store:     s,
		progress:  calc,
		Tasks:     workflow.NewGuard(s, calc, rec),
		Links:     links.NewManager(s, calc, rec),
		Activity:  rec,
		Analytics: analytics.NewEngine(s),
		now:       time.Now,
	}
}

// SetClock replaces the time source of every component.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.progress.Now = now
	s.Tasks.Now = now
	s.Links.Now = now
	s.Activity.Now = now
	s.Analytics.Now = now
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Close releases the underlying store.
func (s *Service) Close() error { return s.store.Close() }

// Report computes the analytics snapshot.
func (s *Service) Report(ctx context.Context) (*analytics.Report, error) {
	return s.Analytics.Report(ctx)
}

// ListActivity returns events newest first.
func (s *Service) ListActivity(ctx context.Context, filter store.ActivityListFilter) ([]*activity.Entry, error) {
	events, err := s.Activity.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	entries := make([]*activity.Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, activity.NewEntry(e))
	}
	return entries, nil
}
