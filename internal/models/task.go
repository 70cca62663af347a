package models

import "time"

// TaskStatus is a kanban lane.
type TaskStatus string

const (
	TaskStatusInbox      TaskStatus = "inbox"
	TaskStatusUpNext     TaskStatus = "up_next"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusTesting    TaskStatus = "testing"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusSolved     TaskStatus = "solved"
	TaskStatusRejected   TaskStatus = "rejected"
)

// TaskStatuses lists every lane in board order.
var TaskStatuses = []TaskStatus{
	TaskStatusInbox,
	TaskStatusUpNext,
	TaskStatusInProgress,
	TaskStatusTesting,
	TaskStatusInReview,
	TaskStatusDone,
	TaskStatusSolved,
	TaskStatusRejected,
}

// Valid reports whether s is one of the known lanes.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether s counts as finished work (done or solved).
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusSolved
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskPriorities lists priorities from least to most urgent.
var TaskPriorities = []TaskPriority{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityUrgent,
}

func (p TaskPriority) Valid() bool {
	for _, v := range TaskPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Task is a unit of work on a board.
type Task struct {
	ID              int64        `json:"id"`
	BoardID         *int64       `json:"board_id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	Position        int          `json:"position"`
	Deadline        *time.Time   `json:"deadline"`
	Rating          *int         `json:"rating"`
	RejectionReason *string      `json:"rejection_reason"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	CompletedAt     *time.Time   `json:"completed_at"`
}

// TaskInput carries the client-supplied fields of a new task.
type TaskInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Position    int          `json:"position"`
	BoardID     *int64       `json:"board_id"`
	Deadline    *time.Time   `json:"deadline"`
	Agent       string       `json:"agent"`
}

// TaskPatch is a partial task update. Absent fields are left unchanged.
// Agent only attributes the change and is not an updatable field.
type TaskPatch struct {
	Name            Optional[string]       `json:"name"`
	Description     Optional[string]       `json:"description"`
	Status          Optional[TaskStatus]   `json:"status"`
	Priority        Optional[TaskPriority] `json:"priority"`
	Position        Optional[int]          `json:"position"`
	BoardID         Optional[int64]        `json:"board_id"`
	Deadline        Optional[time.Time]    `json:"deadline"`
	Rating          Optional[int]          `json:"rating"`
	RejectionReason Optional[string]       `json:"rejection_reason"`
	Agent           string                 `json:"agent"`
}

// FieldCount returns how many updatable fields the patch supplies.
func (p TaskPatch) FieldCount() int {
	return countSet(p.Name.Set, p.Description.Set, p.Status.Set, p.Priority.Set,
		p.Position.Set, p.BoardID.Set, p.Deadline.Set, p.Rating.Set, p.RejectionReason.Set)
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
