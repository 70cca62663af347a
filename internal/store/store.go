package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/taskboard/internal/models"
)

// ErrCorruptRow is wrapped when a stored row cannot be turned into a valid record.
var ErrCorruptRow = errors.New("corrupt row")

// TaskListFilter specifies filters for listing tasks.
type TaskListFilter struct {
	BoardID *int64
	Status  models.TaskStatus
}

// GoalListFilter specifies filters for listing goals.
type GoalListFilter struct {
	Type    models.GoalType
	AgentID string
	BoardID *int64
	Status  models.GoalStatus
}

// ActivityListFilter specifies filters for listing activity. A zero Limit returns every row.
type ActivityListFilter struct {
	Type  models.ActivityType
	Agent string
	Since time.Time
	Limit int
}

// Store defines the persistence interface for the board.
type Store interface {
	// Boards
	CreateBoard(ctx context.Context, b *models.Board) error
	GetBoard(ctx context.Context, id int64) (*models.Board, error)
	ListBoards(ctx context.Context) ([]*models.Board, error)
	UpdateBoard(ctx context.Context, b *models.Board) error
	DeleteBoard(ctx context.Context, id int64) error

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id int64) error

	// Goals
	CreateGoal(ctx context.Context, g *models.Goal) error
	GetGoal(ctx context.Context, id int64) (*models.Goal, error)
	ListGoals(ctx context.Context, filter GoalListFilter) ([]*models.Goal, error)
	UpdateGoal(ctx context.Context, g *models.Goal) error
	UpdateGoalProgress(ctx context.Context, id int64, progress int, updatedAt time.Time) error
	DeleteGoal(ctx context.Context, id int64) error

	// Goal-task links
	LinkTask(ctx context.Context, goalID, taskID int64, createdAt time.Time) error
	UnlinkTask(ctx context.Context, goalID, taskID int64) error
	LinkExists(ctx context.Context, goalID, taskID int64) (bool, error)
	ListGoalTasks(ctx context.Context, goalID int64) ([]*models.Task, error)
	ListTaskGoalIDs(ctx context.Context, taskID int64) ([]int64, error)

	// Activity
	AppendActivity(ctx context.Context, a *models.Activity) error
	ListActivity(ctx context.Context, filter ActivityListFilter) ([]*models.Activity, error)

	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling InTx on a transaction-bound Store reuses the same transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
