package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joescharf/taskboard/internal/models"
)

// Metadata is the typed payload of an activity event. Each event type has
// its own variant; Type selects which one Decode produces.
type Metadata interface {
	Type() models.ActivityType
	AgentID() string
}

// Actor attributes an event to an agent. It is embedded in every variant.
type Actor struct {
	Agent string `json:"agent,omitempty"`
}

func (a Actor) AgentID() string { return a.Agent }

type TaskCreated struct {
	Actor
	TaskID   int64               `json:"task_id"`
	Name     string              `json:"name"`
	Priority models.TaskPriority `json:"priority"`
}

func (TaskCreated) Type() models.ActivityType { return models.ActivityTaskCreated }

// TaskUpdated lists the fields an update touched, other than status.
type TaskUpdated struct {
	Actor
	TaskID int64    `json:"task_id"`
	Fields []string `json:"fields"`
}

func (TaskUpdated) Type() models.ActivityType { return models.ActivityTaskUpdated }

type TaskStatusChanged struct {
	Actor
	TaskID int64             `json:"task_id"`
	From   models.TaskStatus `json:"from"`
	To     models.TaskStatus `json:"to"`
}

func (TaskStatusChanged) Type() models.ActivityType { return models.ActivityTaskStatusChanged }

// TaskCompleted is emitted when a task enters done or solved. Analytics
// attributes the task's rating to its agent.
type TaskCompleted struct {
	Actor
	TaskID int64             `json:"task_id"`
	Status models.TaskStatus `json:"status"`
	Rating *int              `json:"rating,omitempty"`
}

func (TaskCompleted) Type() models.ActivityType { return models.ActivityTaskCompleted }

type TaskRejected struct {
	Actor
	TaskID int64  `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

func (TaskRejected) Type() models.ActivityType { return models.ActivityTaskRejected }

type TaskDeleted struct {
	Actor
	TaskID int64  `json:"task_id"`
	Name   string `json:"name"`
}

func (TaskDeleted) Type() models.ActivityType { return models.ActivityTaskDeleted }

type GoalCreated struct {
	Actor
	GoalID int64           `json:"goal_id"`
	Title  string          `json:"title"`
	Kind   models.GoalType `json:"goal_type"`
}

func (GoalCreated) Type() models.ActivityType { return models.ActivityGoalCreated }

type GoalUpdated struct {
	Actor
	GoalID int64    `json:"goal_id"`
	Fields []string `json:"fields"`
}

func (GoalUpdated) Type() models.ActivityType { return models.ActivityGoalUpdated }

// GoalStatusChanged records a status move and the progress it left behind.
type GoalStatusChanged struct {
	Actor
	GoalID   int64             `json:"goal_id"`
	From     models.GoalStatus `json:"from"`
	To       models.GoalStatus `json:"to"`
	Progress int               `json:"progress"`
}

func (GoalStatusChanged) Type() models.ActivityType { return models.ActivityGoalStatusChanged }

type GoalAchieved struct {
	Actor
	GoalID int64 `json:"goal_id"`
}

func (GoalAchieved) Type() models.ActivityType { return models.ActivityGoalAchieved }

type GoalDeleted struct {
	Actor
	GoalID int64  `json:"goal_id"`
	Title  string `json:"title"`
}

func (GoalDeleted) Type() models.ActivityType { return models.ActivityGoalDeleted }

// GoalTaskLinked records a link and the goal's progress after recalculation.
type GoalTaskLinked struct {
	Actor
	GoalID   int64 `json:"goal_id"`
	TaskID   int64 `json:"task_id"`
	Progress int   `json:"progress"`
}

func (GoalTaskLinked) Type() models.ActivityType { return models.ActivityGoalTaskLinked }

type GoalTaskUnlinked struct {
	Actor
	GoalID   int64 `json:"goal_id"`
	TaskID   int64 `json:"task_id"`
	Progress int   `json:"progress"`
}

func (GoalTaskUnlinked) Type() models.ActivityType { return models.ActivityGoalTaskUnlinked }

type BoardCreated struct {
	Actor
	BoardID int64  `json:"board_id"`
	Name    string `json:"name"`
}

func (BoardCreated) Type() models.ActivityType { return models.ActivityBoardCreated }

type BoardDeleted struct {
	Actor
	BoardID int64  `json:"board_id"`
	Name    string `json:"name"`
}

func (BoardDeleted) Type() models.ActivityType { return models.ActivityBoardDeleted }

// Generic holds metadata of event types the board does not emit itself,
// such as events written by external agents.
type Generic struct {
	Kind   models.ActivityType
	Fields map[string]any
}

func (g Generic) Type() models.ActivityType { return g.Kind }

func (g Generic) AgentID() string {
	agent, _ := g.Fields["agent"].(string)
	return agent
}

func (g Generic) MarshalJSON() ([]byte, error) {
	if g.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g.Fields)
}

// Decode parses raw metadata into the variant for eventType. Empty metadata
// decodes to the zero variant. Well-formed JSON that does not fit the
// variant decodes to Generic. Malformed JSON returns an error.
func Decode(eventType models.ActivityType, raw []byte) (Metadata, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var md Metadata
	switch eventType {
	case models.ActivityTaskCreated:
		md = &TaskCreated{}
	case models.ActivityTaskUpdated:
		md = &TaskUpdated{}
	case models.ActivityTaskStatusChanged:
		md = &TaskStatusChanged{}
	case models.ActivityTaskCompleted:
		md = &TaskCompleted{}
	case models.ActivityTaskRejected:
		md = &TaskRejected{}
	case models.ActivityTaskDeleted:
		md = &TaskDeleted{}
	case models.ActivityGoalCreated:
		md = &GoalCreated{}
	case models.ActivityGoalUpdated:
		md = &GoalUpdated{}
	case models.ActivityGoalStatusChanged:
		md = &GoalStatusChanged{}
	case models.ActivityGoalAchieved:
		md = &GoalAchieved{}
	case models.ActivityGoalDeleted:
		md = &GoalDeleted{}
	case models.ActivityGoalTaskLinked:
		md = &GoalTaskLinked{}
	case models.ActivityGoalTaskUnlinked:
		md = &GoalTaskUnlinked{}
	case models.ActivityBoardCreated:
		md = &BoardCreated{}
	case models.ActivityBoardDeleted:
		md = &BoardDeleted{}
	default:
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		return Generic{Kind: eventType, Fields: fields}, nil
	}

	if err := json.Unmarshal(raw, md); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		return Generic{Kind: eventType, Fields: fields}, nil
	}
	return md, nil
}

// Encode serializes a variant for storage.
func Encode(md Metadata) (json.RawMessage, error) {
	if md == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode %s metadata: %w", md.Type(), err)
	}
	return data, nil
}
