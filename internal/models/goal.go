package models

import "time"

// GoalType scopes a goal to the whole board or to one agent.
type GoalType string

const (
	GoalTypeGlobal GoalType = "global"
	GoalTypeAgent  GoalType = "agent"
)

func (t GoalType) Valid() bool {
	return t == GoalTypeGlobal || t == GoalTypeAgent
}

// GoalStatus represents the state of a goal.
type GoalStatus string

const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusPaused   GoalStatus = "paused"
	GoalStatusAchieved GoalStatus = "achieved"
)

func (s GoalStatus) Valid() bool {
	return s == GoalStatusActive || s == GoalStatusPaused || s == GoalStatusAchieved
}

// Goal aggregates linked tasks toward a target. Progress is derived from
// the linked tasks and only forced to 100 when the goal is marked achieved.
type Goal struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        GoalType   `json:"type"`
	AgentID     *string    `json:"agent_id"`
	Status      GoalStatus `json:"status"`
	Progress    int        `json:"progress"`
	Deadline    *time.Time `json:"deadline"`
	BoardID     *int64     `json:"board_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GoalView is a goal together with the tasks linked to it.
type GoalView struct {
	Goal  *Goal   `json:"goal"`
	Tasks []*Task `json:"tasks"`
}

// GoalInput carries the client-supplied fields of a new goal.
type GoalInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        GoalType   `json:"type"`
	AgentID     *string    `json:"agent_id"`
	Deadline    *time.Time `json:"deadline"`
	BoardID     *int64     `json:"board_id"`
	Agent       string     `json:"agent"`
}

// GoalPatch is a partial goal update. Progress is deliberately absent.
type GoalPatch struct {
	Title       Optional[string]     `json:"title"`
	Description Optional[string]     `json:"description"`
	Type        Optional[GoalType]   `json:"type"`
	AgentID     Optional[string]     `json:"agent_id"`
	Status      Optional[GoalStatus] `json:"status"`
	Deadline    Optional[time.Time]  `json:"deadline"`
	BoardID     Optional[int64]      `json:"board_id"`
	Agent       string               `json:"agent"`
}

func (p GoalPatch) FieldCount() int {
	return countSet(p.Title.Set, p.Description.Set, p.Type.Set, p.AgentID.Set,
		p.Status.Set, p.Deadline.Set, p.BoardID.Set)
}
