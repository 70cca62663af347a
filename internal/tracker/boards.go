package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/taskboard/internal/activity"
	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"
)

func (s *Service) CreateBoard(ctx context.Context, name, description, agent string) (*models.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validationf("name must not be blank")
	}
	now := s.now().UTC()
	b := &models.Board{Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return nil, err
	}
	s.Activity.Record(ctx, fmt.Sprintf("Board created: %s", b.Name), &activity.BoardCreated{
		Actor:   activity.Actor{Agent: agent},
		BoardID: b.ID,
		Name:    b.Name,
	})
	return b, nil
}

func (s *Service) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	return s.store.GetBoard(ctx, id)
}

func (s *Service) ListBoards(ctx context.Context) ([]*models.Board, error) {
	return s.store.ListBoards(ctx)
}

func (s *Service) UpdateBoard(ctx context.Context, id int64, p models.BoardPatch) (*models.Board, error) {
	if p.FieldCount() == 0 {
		return nil, apperr.Validationf("no updatable fields supplied")
	}
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name.Set {
		if p.Name.Value == nil || strings.TrimSpace(*p.Name.Value) == "" {
			return nil, apperr.Validationf("name must not be blank")
		}
		b.Name = strings.TrimSpace(*p.Name.Value)
	}
	if p.Description.Set {
		b.Description = ""
		if p.Description.Value != nil {
			b.Description = *p.Description.Value
		}
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBoard(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBoard removes the board. Its tasks and goals stay, unassigned.
func (s *Service) DeleteBoard(ctx context.Context, id int64, agent string) error {
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, id); err != nil {
		return err
	}
	s.Activity.Record(ctx, fmt.Sprintf("Board deleted: %s", b.Name), &activity.BoardDeleted{
		Actor:   activity.Actor{Agent: agent},
		BoardID: b.ID,
		Name:    b.Name,
	})
	return nil
}
