package models

import "time"

// Board groups tasks and goals for one project or workspace.
type Board struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoardPatch is a partial board update.
type BoardPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
}

func (p BoardPatch) FieldCount() int {
	return countSet(p.Name.Set, p.Description.Set)
}
