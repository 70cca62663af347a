package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/taskboard/internal/apperr"
	"github.com/joescharf/taskboard/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Pragmas go in the DSN so they apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes writes from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if s.tx {
		return errors.New("migrate: not allowed inside a transaction")
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection. It is a no-op on a transaction-bound store.
func (s *SQLiteStore) Close() error {
	if s.tx {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLiteStore{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// newActivityID returns a ULID so activity ids sort by creation time.
func newActivityID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// utcPtr normalizes an optional timestamp so stored values sort lexically.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// --- Boards ---

func (s *SQLiteStore) CreateBoard(ctx context.Context, b *models.Board) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO boards (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		b.Name, b.Description, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create board: last insert id: %w", err)
	}
	b.ID = id
	return nil
}

func (s *SQLiteStore) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	b := &models.Board{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM boards WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("board not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) ListBoards(ctx context.Context) ([]*models.Board, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM boards ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var boards []*models.Board
	for rows.Next() {
		b := &models.Board{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *SQLiteStore) UpdateBoard(ctx context.Context, b *models.Board) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE boards SET name=?, description=?, updated_at=? WHERE id=?`,
		b.Name, b.Description, b.UpdatedAt.UTC(), b.ID,
	)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("board not found: %d", b.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteBoard(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("board not found: %d", id)
	}
	return nil
}

// --- Tasks ---

const taskColumns = `id, board_id, name, description, status, priority, position, deadline, rating, rejection_reason, created_at, updated_at, completed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var status, priority string
	var boardID, rating sql.NullInt64
	var reason sql.NullString
	var deadline, completedAt sql.NullTime

	if err := row.Scan(&t.ID, &boardID, &t.Name, &t.Description, &status, &priority, &t.Position,
		&deadline, &rating, &reason, &t.CreatedAt, &t.UpdatedAt, &completedAt); err != nil {
		return nil, err
	}

	t.Status = models.TaskStatus(status)
	if !t.Status.Valid() {
		return nil, fmt.Errorf("task %d: unknown status %q: %w", t.ID, status, ErrCorruptRow)
	}
	t.Priority = models.TaskPriority(priority)
	if !t.Priority.Valid() {
		return nil, fmt.Errorf("task %d: unknown priority %q: %w", t.ID, priority, ErrCorruptRow)
	}
	if boardID.Valid {
		t.BoardID = &boardID.Int64
	}
	if rating.Valid {
		r := int(rating.Int64)
		t.Rating = &r
	}
	if reason.Valid {
		t.RejectionReason = &reason.String
	}
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (s *SQLiteStore) scanTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (board_id, name, description, status, priority, position, deadline, rating, rejection_reason, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BoardID, t.Name, t.Description, string(t.Status), string(t.Priority), t.Position,
		utcPtr(t.Deadline), t.Rating, t.RejectionReason, t.CreatedAt.UTC(), t.UpdatedAt.UTC(), utcPtr(t.CompletedAt),
	)
	if isForeignKeyViolation(err) {
		return apperr.NotFoundf("board not found: %d", derefID(t.BoardID))
	}
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create task: last insert id: %w", err)
	}
	t.ID = id
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("task not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conditions []string
	var args []any

	if filter.BoardID != nil {
		conditions = append(conditions, "board_id = ?")
		args = append(args, *filter.BoardID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY position ASC, created_at DESC, id DESC`

	return s.scanTasks(ctx, query, args...)
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *models.Task) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE tasks SET board_id=?, name=?, description=?, status=?, priority=?, position=?, deadline=?, rating=?, rejection_reason=?, updated_at=?, completed_at=?
		WHERE id=?`,
		t.BoardID, t.Name, t.Description, string(t.Status), string(t.Priority), t.Position,
		utcPtr(t.Deadline), t.Rating, t.RejectionReason, t.UpdatedAt.UTC(), utcPtr(t.CompletedAt), t.ID,
	)
	if isForeignKeyViolation(err) {
		return apperr.NotFoundf("board not found: %d", derefID(t.BoardID))
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("task not found: %d", t.ID)
	}
	return nil
}

// DeleteTask removes the task; its goal links go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("task not found: %d", id)
	}
	return nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// --- Goals ---

const goalColumns = `id, title, description, type, agent_id, status, progress, deadline, board_id, created_at, updated_at`

func scanGoal(row rowScanner) (*models.Goal, error) {
	g := &models.Goal{}
	var goalType, status string
	var agentID sql.NullString
	var boardID sql.NullInt64
	var deadline sql.NullTime

	if err := row.Scan(&g.ID, &g.Title, &g.Description, &goalType, &agentID, &status, &g.Progress,
		&deadline, &boardID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}

	g.Type = models.GoalType(goalType)
	if !g.Type.Valid() {
		return nil, fmt.Errorf("goal %d: unknown type %q: %w", g.ID, goalType, ErrCorruptRow)
	}
	g.Status = models.GoalStatus(status)
	if !g.Status.Valid() {
		return nil, fmt.Errorf("goal %d: unknown status %q: %w", g.ID, status, ErrCorruptRow)
	}
	if agentID.Valid {
		g.AgentID = &agentID.String
	}
	if boardID.Valid {
		g.BoardID = &boardID.Int64
	}
	if deadline.Valid {
		g.Deadline = &deadline.Time
	}
	return g, nil
}

func (s *SQLiteStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO goals (title, description, type, agent_id, status, progress, deadline, board_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title, g.Description, string(g.Type), g.AgentID, string(g.Status), g.Progress,
		utcPtr(g.Deadline), g.BoardID, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if isForeignKeyViolation(err) {
		return apperr.NotFoundf("board not found: %d", derefID(g.BoardID))
	}
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create goal: last insert id: %w", err)
	}
	g.ID = id
	return nil
}

func (s *SQLiteStore) GetGoal(ctx context.Context, id int64) (*models.Goal, error) {
	g, err := scanGoal(s.q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("goal not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context, filter GoalListFilter) ([]*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.AgentID != "" {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if filter.BoardID != nil {
		conditions = append(conditions, "board_id = ?")
		args = append(args, *filter.BoardID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY
		CASE status WHEN 'active' THEN 0 WHEN 'paused' THEN 1 WHEN 'achieved' THEN 2 ELSE 3 END,
		created_at DESC, id DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []*models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *SQLiteStore) UpdateGoal(ctx context.Context, g *models.Goal) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE goals SET title=?, description=?, type=?, agent_id=?, status=?, progress=?, deadline=?, board_id=?, updated_at=?
		WHERE id=?`,
		g.Title, g.Description, string(g.Type), g.AgentID, string(g.Status), g.Progress,
		utcPtr(g.Deadline), g.BoardID, g.UpdatedAt.UTC(), g.ID,
	)
	if isForeignKeyViolation(err) {
		return apperr.NotFoundf("board not found: %d", derefID(g.BoardID))
	}
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("goal not found: %d", g.ID)
	}
	return nil
}

// UpdateGoalProgress writes progress and updated_at in one statement.
func (s *SQLiteStore) UpdateGoalProgress(ctx context.Context, id int64, progress int, updatedAt time.Time) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE goals SET progress=?, updated_at=? WHERE id=?`, progress, updatedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("goal not found: %d", id)
	}
	return nil
}

func (s *SQLiteStore) DeleteGoal(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("goal not found: %d", id)
	}
	return nil
}

// --- Goal-task links ---

func (s *SQLiteStore) LinkTask(ctx context.Context, goalID, taskID int64, createdAt time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO goal_tasks (goal_id, task_id, created_at) VALUES (?, ?, ?)`,
		goalID, taskID, createdAt.UTC())
	if isUniqueViolation(err) {
		return apperr.Conflictf("task %d is already linked to goal %d", taskID, goalID)
	}
	if isForeignKeyViolation(err) {
		return apperr.NotFoundf("goal %d or task %d not found", goalID, taskID)
	}
	if err != nil {
		return fmt.Errorf("link task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UnlinkTask(ctx context.Context, goalID, taskID int64) error {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM goal_tasks WHERE goal_id = ? AND task_id = ?`, goalID, taskID)
	if err != nil {
		return fmt.Errorf("unlink task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperr.NotFoundf("task %d is not linked to goal %d", taskID, goalID)
	}
	return nil
}

func (s *SQLiteStore) LinkExists(ctx context.Context, goalID, taskID int64) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goal_tasks WHERE goal_id = ? AND task_id = ?`, goalID, taskID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return count > 0, nil
}

// ListGoalTasks returns linked tasks by position, newest first within a position.
func (s *SQLiteStore) ListGoalTasks(ctx context.Context, goalID int64) ([]*models.Task, error) {
	return s.scanTasks(ctx,
		`SELECT t.id, t.board_id, t.name, t.description, t.status, t.priority, t.position, t.deadline, t.rating, t.rejection_reason, t.created_at, t.updated_at, t.completed_at
		FROM tasks t
		JOIN goal_tasks gt ON gt.task_id = t.id
		WHERE gt.goal_id = ?
		ORDER BY t.position ASC, t.created_at DESC, t.id DESC`, goalID)
}

func (s *SQLiteStore) ListTaskGoalIDs(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT goal_id FROM goal_tasks WHERE task_id = ? ORDER BY goal_id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan goal id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Activity ---

func (s *SQLiteStore) AppendActivity(ctx context.Context, a *models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.ID == "" {
		a.ID = newActivityID(a.CreatedAt)
	}
	metadata := string(a.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO activity (id, type, message, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Message, metadata, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListActivity returns events newest first. Metadata is returned verbatim,
// including rows whose metadata is not valid JSON.
func (s *SQLiteStore) ListActivity(ctx context.Context, filter ActivityListFilter) ([]*models.Activity, error) {
	query := `SELECT id, type, message, metadata, created_at FROM activity`
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Agent != "" {
		conditions = append(conditions, "(CASE WHEN json_valid(metadata) THEN json_extract(metadata, '$.agent') END) = ?")
		args = append(args, filter.Agent)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*models.Activity
	for rows.Next() {
		a := &models.Activity{}
		var eventType, metadata string
		if err := rows.Scan(&a.ID, &eventType, &a.Message, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = models.ActivityType(eventType)
		a.Metadata = []byte(metadata)
		events = append(events, a)
	}
	return events, rows.Err()
}
