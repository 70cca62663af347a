package workflow

import (
	"strings"
	"time"

	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"
)

const (
	minRating = 1
	maxRating = 5
)

// transition describes what applyPatch changed on a task.
type transition struct {
	From, To models.TaskStatus
	// Fields lists updated fields other than status, in patch order.
	Fields []string
}

func (tr transition) statusChanged() bool { return tr.From != tr.To }

// completed reports whether the task entered done or solved from an unfinished lane.
func (tr transition) completed() bool { return tr.To.Terminal() && !tr.From.Terminal() }

func (tr transition) rejected() bool {
	return tr.To == models.TaskStatusRejected && tr.From != models.TaskStatusRejected
}

// affectsProgress reports whether goal progress may have moved.
func (tr transition) affectsProgress() bool {
	return tr.statusChanged() && (tr.From == models.TaskStatusDone || tr.To == models.TaskStatusDone)
}

// applyPatch validates p and applies it to t in place. On error t is left
// untouched.
//
// Status side effects:
//   - entering done or solved from any other lane sets completed_at to now
//   - moving between done and solved keeps completed_at
//   - leaving done/solved for an unfinished lane clears completed_at and rating
//   - any lane other than rejected clears rejection_reason
func applyPatch(t *models.Task, p models.TaskPatch, now time.Time) (transition, error) {
	if p.FieldCount() == 0 {
		return transition{}, apperr.Validationf("no updatable fields supplied")
	}

	next := *t
	tr := transition{From: t.Status, To: t.Status}

	if p.Name.Set {
		if p.Name.Value == nil || strings.TrimSpace(*p.Name.Value) == "" {
			return transition{}, apperr.Validationf("name must not be blank")
		}
		next.Name = strings.TrimSpace(*p.Name.Value)
		tr.Fields = append(tr.Fields, "name")
	}
	if p.Description.Set {
		next.Description = ""
		if p.Description.Value != nil {
			next.Description = *p.Description.Value
		}
		tr.Fields = append(tr.Fields, "description")
	}
	if p.Status.Set {
		if p.Status.Value == nil || !p.Status.Value.Valid() {
			return transition{}, apperr.Validationf("invalid status %q", deref(p.Status.Value))
		}
		next.Status = *p.Status.Value
		tr.To = next.Status
	}
	if p.Priority.Set {
		if p.Priority.Value == nil || !p.Priority.Value.Valid() {
			return transition{}, apperr.Validationf("invalid priority %q", deref(p.Priority.Value))
		}
		next.Priority = *p.Priority.Value
		tr.Fields = append(tr.Fields, "priority")
	}
	if p.Position.Set {
		if p.Position.Value == nil {
			return transition{}, apperr.Validationf("position must not be null")
		}
		next.Position = *p.Position.Value
		tr.Fields = append(tr.Fields, "position")
	}
	if p.BoardID.Set {
		next.BoardID = p.BoardID.Value
		tr.Fields = append(tr.Fields, "board_id")
	}
	if p.Deadline.Set {
		next.Deadline = nil
		if p.Deadline.Value != nil {
			d := p.Deadline.Value.UTC()
			next.Deadline = &d
		}
		tr.Fields = append(tr.Fields, "deadline")
	}
	if p.Rating.Set {
		if r := p.Rating.Value; r != nil && (*r < minRating || *r > maxRating) {
			return transition{}, apperr.Validationf("rating must be between %d and %d, got %d", minRating, maxRating, *r)
		}
		next.Rating = p.Rating.Value
		tr.Fields = append(tr.Fields, "rating")
	}
	if p.RejectionReason.Set {
		next.RejectionReason = p.RejectionReason.Value
		tr.Fields = append(tr.Fields, "rejection_reason")
	}

	switch {
	case tr.completed():
		completed := now.UTC()
		next.CompletedAt = &completed
	case !next.Status.Terminal():
		next.CompletedAt = nil
		next.Rating = nil
	}
	if next.Status != models.TaskStatusRejected {
		next.RejectionReason = nil
	}
	if p.Rating.Set && p.Rating.Value != nil && next.Rating == nil {
		tr.Fields = without(tr.Fields, "rating")
	}
	if p.RejectionReason.Set && p.RejectionReason.Value != nil && next.RejectionReason == nil {
		tr.Fields = without(tr.Fields, "rejection_reason")
	}
	next.UpdatedAt = now.UTC()

	*t = next
	return tr, nil
}

func without(fields []string, name string) []string {
	out := fields[:0]
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

// validateInput checks a create request and fills defaults.
func validateInput(in *models.TaskInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validationf("name must not be blank")
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !in.Priority.Valid() {
		return apperr.Validationf("invalid priority %q", in.Priority)
	}
	return nil
}

func deref[T ~string](v *T) string {
	if v == nil {
		return "null"
	}
	return string(*v)
}
