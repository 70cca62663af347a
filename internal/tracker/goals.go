package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/progress"
	"github.com/joescharf/taskboard/internal/store"
)

// checkOwner enforces that agent goals name an agent and global goals do not.
func checkOwner(t models.GoalType, agentID *string) error {
	hasAgent := agentID != nil && strings.TrimSpace(*agentID) != ""
	switch {
	case t == models.GoalTypeAgent && !hasAgent:
		return apperr.Validationf("agent goals require agent_id")
	case t == models.GoalTypeGlobal && agentID != nil:
		return apperr.Validationf("global goals must not set agent_id")
	}
	return nil
}

func (s *Service) CreateGoal(ctx context.Context, in models.GoalInput) (*models.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validationf("title must not be blank")
	}
	if in.Type == "" {
		in.Type = models.GoalTypeGlobal
	}
	if !in.Type.Valid() {
		return nil, apperr.Validationf("invalid goal type %q", in.Type)
	}
	if err := checkOwner(in.Type, in.AgentID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &models.Goal{
		Title:       title,
		Description: in.Description,
		Type:        in.Type,
		AgentID:     in.AgentID,
		Status:      models.GoalStatusActive,
		Deadline:    in.Deadline,
		BoardID:     in.BoardID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.Activity.Record(ctx, fmt.Sprintf("Goal created: %s", g.Title), &activity.GoalCreated{
		Actor:  activity.Actor{Agent: in.Agent},
		GoalID: g.ID,
		Title:  g.Title,
		Kind:   g.Type,
	})
	return g, nil
}

// GetGoal returns the goal with its linked tasks.
func (s *Service) GetGoal(ctx context.Context, id int64) (*models.GoalView, error) {
	return s.Links.View(ctx, id)
}

func (s *Service) ListGoals(ctx context.Context, filter store.GoalListFilter) ([]*models.Goal, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Validationf("invalid goal type filter %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validationf("invalid goal status filter %q", filter.Status)
	}
	return s.store.ListGoals(ctx, filter)
}

// UpdateGoal applies a partial update. Setting status to achieved forces
// progress to 100; leaving achieved recomputes it from the linked tasks.
func (s *Service) UpdateGoal(ctx context.Context, id int64, p models.GoalPatch) (*models.Goal, error) {
	if p.FieldCount() == 0 {
		return nil, apperr.Validationf("no updatable fields supplied")
	}

	var (
		updated *models.Goal
		fields  []string
		prev    models.GoalStatus
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		g, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		prev = g.Status
		fields, err = applyGoalPatch(g, p)
		if err != nil {
			return err
		}
		g.UpdatedAt = s.now().UTC()

		switch {
		case g.Status == models.GoalStatusAchieved:
			g.Progress = 100
		case prev == models.GoalStatusAchieved:
			tasks, err := tx.ListGoalTasks(ctx, id)
			if err != nil {
				return err
			}
			g.Progress = percentOf(tasks)
		}
		if err := tx.UpdateGoal(ctx, g); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	actor := activity.Actor{Agent: p.Agent}
	if prev != updated.Status {
		s.Activity.Record(ctx, fmt.Sprintf("Goal %q moved from %s to %s", updated.Title, prev, updated.Status),
			&activity.GoalStatusChanged{Actor: actor, GoalID: updated.ID, From: prev, To: updated.Status, Progress: updated.Progress})
	}
	if prev != updated.Status && updated.Status == models.GoalStatusAchieved {
		s.Activity.Record(ctx, fmt.Sprintf("Goal achieved: %s", updated.Title), &activity.GoalAchieved{Actor: actor, GoalID: updated.ID})
	}
	if len(fields) > 0 {
		s.Activity.Record(ctx, fmt.Sprintf("Goal updated: %s (%s)", updated.Title, strings.Join(fields, ", ")),
			&activity.GoalUpdated{Actor: actor, GoalID: updated.ID, Fields: fields})
	}
	return updated, nil
}

// applyGoalPatch validates p and applies it to g. It returns the names of
// changed fields other than status.
func applyGoalPatch(g *models.Goal, p models.GoalPatch) ([]string, error) {
	next := *g
	var fields []string

	if p.Title.Set {
		if p.Title.Value == nil || strings.TrimSpace(*p.Title.Value) == "" {
			return nil, apperr.Validationf("title must not be blank")
		}
		next.Title = strings.TrimSpace(*p.Title.Value)
		fields = append(fields, "title")
	}
	if p.Description.Set {
		next.Description = ""
		if p.Description.Value != nil {
			next.Description = *p.Description.Value
		}
		fields = append(fields, "description")
	}
	if p.Type.Set {
		if p.Type.Value == nil || !p.Type.Value.Valid() {
			return nil, apperr.Validationf("invalid goal type")
		}
		next.Type = *p.Type.Value
		fields = append(fields, "type")
	}
	if p.AgentID.Set {
		next.AgentID = p.AgentID.Value
		fields = append(fields, "agent_id")
	}
	if p.Status.Set {
		if p.Status.Value == nil || !p.Status.Value.Valid() {
			return nil, apperr.Validationf("invalid goal status")
		}
		next.Status = *p.Status.Value
	}
	if p.Deadline.Set {
		next.Deadline = p.Deadline.Value
		fields = append(fields, "deadline")
	}
	if p.BoardID.Set {
		next.BoardID = p.BoardID.Value
		fields = append(fields, "board_id")
	}
	if err := checkOwner(next.Type, next.AgentID); err != nil {
		return nil, err
	}

	*g = next
	return fields, nil
}

func percentOf(tasks []*models.Task) int {
	return progress.Percent(progress.Count(tasks))
}

// AchieveGoal marks the goal achieved and forces progress to 100.
func (s *Service) AchieveGoal(ctx context.Context, id int64, agent string) (*models.Goal, error) {
	return s.UpdateGoal(ctx, id, models.GoalPatch{Status: models.Some(models.GoalStatusAchieved), Agent: agent})
}

// DeleteGoal removes the goal and its links. Linked tasks are kept.
func (s *Service) DeleteGoal(ctx context.Context, id int64, agent string) error {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.Activity.Record(ctx, fmt.Sprintf("Goal deleted: %s", g.Title), &activity.GoalDeleted{
		Actor:  activity.Actor{Agent: agent},
		GoalID: g.ID,
		Title:  g.Title,
	})
	return nil
}
