package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

// Recorder appends events to the activity log. Recording is best-effort:
// a failed append is logged and never surfaces to the caller.
type Recorder struct {
	store  store.Store
	Now    func() time.Time
	Logger *slog.Logger
}

// NewRecorder returns a Recorder writing to s. A nil logger uses slog.Default.
func NewRecorder(s store.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, Now: time.Now, Logger: logger}
}

// Record appends one event. Call it after the state change it describes
// has committed.
func (r *Recorder) Record(ctx context.Context, message string, md Metadata) {
	if r == nil || r.store == nil || md == nil {
		return
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	data, err := Encode(md)
	if err != nil {
		r.Logger.Warn("activity encode failed", "type", md.Type(), "error", err)
		return
	}

	event := &models.Activity{
		Type:      md.Type(),
		Message:   message,
		Metadata:  data,
		CreatedAt: now().UTC(),
	}
	if err := r.store.AppendActivity(ctx, event); err != nil {
		r.Logger.Warn("activity append failed", "type", md.Type(), "message", message, "error", err)
		return
	}
	r.Logger.Debug("activity recorded", "type", md.Type(), "id", event.ID, "agent", md.AgentID())
}

// List returns events newest first.
func (r *Recorder) List(ctx context.Context, filter store.ActivityListFilter) ([]*models.Activity, error) {
	return r.store.ListActivity(ctx, filter)
}

// Entry is an event prepared for output. Metadata that is not valid JSON is
// carried as a JSON string so the entry always marshals.
type Entry struct {
	ID        string              `json:"id"`
	Type      models.ActivityType `json:"type"`
	Message   string              `json:"message"`
	Agent     string              `json:"agent,omitempty"`
	Metadata  json.RawMessage     `json:"metadata"`
	CreatedAt time.Time           `json:"created_at"`
}

func NewEntry(a *models.Activity) *Entry {
	e := &Entry{ID: a.ID, Type: a.Type, Message: a.Message, Metadata: a.Metadata, CreatedAt: a.CreatedAt}
	if md, err := Decode(a.Type, a.Metadata); err == nil {
		e.Agent = md.AgentID()
	}
	switch {
	case len(a.Metadata) == 0:
		e.Metadata = json.RawMessage("{}")
	case !json.Valid(a.Metadata):
		quoted, _ := json.Marshal(string(a.Metadata))
		e.Metadata = quoted
	}
	return e
}
