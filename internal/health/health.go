// Package health scores how well work is flowing across a set of tasks.
package health

import (
	"time"

	"github.com/joescharf/taskboard/internal/models"
)

// HealthScore represents the computed health of a board.
type HealthScore struct {
	Total          int
	Throughput     int // 0-25
	BacklogHealth  int // 0-25
	FlowLoad       int // 0-25
	Quality        int // 0-25
	LastCompletion time.Time
}

// Scorer computes health scores for boards.
type Scorer struct {
	Now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

// Score computes a health score (0-100) for the given tasks.
func (s *Scorer) Score(tasks []*models.Task) *HealthScore {
	h := &HealthScore{}
	now := s.Now()

	var open, inFlight, finished, rejected int
	for _, t := range tasks {
		switch {
		case t.Status.Terminal():
			finished++
			if t.CompletedAt != nil && t.CompletedAt.After(h.LastCompletion) {
				h.LastCompletion = *t.CompletedAt
			}
		case t.Status == models.TaskStatusRejected:
			rejected++
		case isInFlight(t.Status):
			inFlight++
			open++
		default:
			open++
		}
	}

	// Throughput (25 pts) - recent completions = more points
	h.Throughput = scoreRecency(h.LastCompletion, now, 25)
	if len(tasks) == 0 {
		h.Throughput = 25
	}

	// Backlog (25 pts) - fewer open tasks relative to total = better
	h.BacklogHealth = scoreBacklog(open, len(tasks), 25)

	// Flow (25 pts) - too much work in flight at once is penalized
	h.FlowLoad = scoreLoad(inFlight, 25)

	// Quality (25 pts) - rejected share of closed work
	h.Quality = scoreQuality(finished, rejected, 25)

	h.Total = h.Throughput + h.BacklogHealth + h.FlowLoad + h.Quality
	return h
}

func isInFlight(s models.TaskStatus) bool {
	return s == models.TaskStatusInProgress || s == models.TaskStatusTesting || s == models.TaskStatusInReview
}

// scoreRecency converts time since the last completion to points.
func scoreRecency(t, now time.Time, maxPoints int) int {
	if t.IsZero() {
		return 0
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 1:
		return maxPoints
	case days <= 3:
		return int(float64(maxPoints) * 0.9)
	case days <= 7:
		return int(float64(maxPoints) * 0.75)
	case days <= 14:
		return int(float64(maxPoints) * 0.6)
	case days <= 30:
		return int(float64(maxPoints) * 0.4)
	case days <= 90:
		return int(float64(maxPoints) * 0.2)
	default:
		return int(float64(maxPoints) * 0.1)
	}
}

func scoreBacklog(open, total, maxPoints int) int {
	if total == 0 {
		return maxPoints
	}
	ratio := float64(open) / float64(total)
	return int(float64(maxPoints) * (1 - ratio*0.8))
}

// scoreLoad penalizes having many tasks in flight.
func scoreLoad(count, maxPoints int) int {
	switch {
	case count <= 3:
		return maxPoints
	case count <= 5:
		return int(float64(maxPoints) * 0.8)
	case count <= 10:
		return int(float64(maxPoints) * 0.6)
	case count <= 20:
		return int(float64(maxPoints) * 0.4)
	default:
		return int(float64(maxPoints) * 0.2)
	}
}

func scoreQuality(finished, rejected, maxPoints int) int {
	closed := finished + rejected
	if closed == 0 {
		return maxPoints
	}
	return int(float64(maxPoints) * float64(finished) / float64(closed))
}
