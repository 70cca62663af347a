package models

import (
	"encoding/json"
	"time"
)

// ActivityType tags an activity event. The set is open; the constants below
// are the events the board itself emits.
type ActivityType string

const (
	ActivityTaskCreated       ActivityType = "task_created"
	ActivityTaskUpdated       ActivityType = "task_updated"
	ActivityTaskStatusChanged ActivityType = "task_status_changed"
	ActivityTaskCompleted     ActivityType = "task_completed"
	ActivityTaskRejected      ActivityType = "task_rejected"
	ActivityTaskDeleted       ActivityType = "task_deleted"
	ActivityGoalCreated       ActivityType = "goal_created"
	ActivityGoalUpdated       ActivityType = "goal_updated"
	ActivityGoalStatusChanged ActivityType = "goal_status_changed"
	ActivityGoalAchieved      ActivityType = "goal_achieved"
	ActivityGoalDeleted       ActivityType = "goal_deleted"
	ActivityGoalTaskLinked    ActivityType = "goal_task_linked"
	ActivityGoalTaskUnlinked  ActivityType = "goal_task_unlinked"
	ActivityBoardCreated      ActivityType = "board_created"
	ActivityBoardDeleted      ActivityType = "board_deleted"
)

// Activity is one immutable entry of the activity log. Metadata is stored
// verbatim; use activity.Decode to read it as a typed variant.
type Activity struct {
	ID        string          `json:"id"`
	Type      ActivityType    `json:"type"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}
