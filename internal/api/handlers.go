package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
)

// --- Boards ---

type boardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Agent       string `json:"agent"`
}

func (s *Server) listBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.svc.ListBoards(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if boards == nil {
		boards = []*models.Board{}
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) createBoard(w http.ResponseWriter, r *http.Request) {
	var req boardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := s.svc.CreateBoard(r.Context(), req.Name, req.Description, req.Agent)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := s.svc.GetBoard(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.BoardPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	b, err := s.svc.UpdateBoard(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteBoard(r.Context(), id, r.URL.Query().Get("agent")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Tasks ---

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	boardID, ok := queryID(w, r, "board_id")
	if !ok {
		return
	}
	filter := store.TaskListFilter{
		BoardID: boardID,
		Status:  models.TaskStatus(r.URL.Query().Get("status")),
	}
	tasks, err := s.svc.Tasks.ListTasks(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := s.svc.Tasks.CreateTask(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := s.svc.Tasks.GetTask(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	t, err := s.svc.Tasks.UpdateTask(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.Tasks.DeleteTask(r.Context(), id, r.URL.Query().Get("agent")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Goals ---

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	boardID, ok := queryID(w, r, "board_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := store.GoalListFilter{
		Type:    models.GoalType(q.Get("type")),
		AgentID: q.Get("agent_id"),
		BoardID: boardID,
		Status:  models.GoalStatus(q.Get("status")),
	}
	goals, err := s.svc.ListGoals(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if goals == nil {
		goals = []*models.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var in models.GoalInput
	if !decodeJSON(w, r, &in) {
		return
	}
	g, err := s.svc.CreateGoal(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := s.svc.GetGoal(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.GoalPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	g, err := s.svc.UpdateGoal(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteGoal(r.Context(), id, r.URL.Query().Get("agent")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type agentRequest struct {
	Agent string `json:"agent"`
}

func (s *Server) achieveGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req agentRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	g, err := s.svc.AchieveGoal(r.Context(), id, req.Agent)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// --- Links ---

func (s *Server) listGoalTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tasks, err := s.svc.Links.ListLinkedTasks(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

type linkRequest struct {
	TaskID int64  `json:"task_id"`
	Agent  string `json:"agent"`
}

func (s *Server) linkTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req linkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskID <= 0 {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	view, err := s.svc.Links.Link(r.Context(), id, req.TaskID, req.Agent)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) unlinkTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	g, err := s.svc.Links.Unlink(r.Context(), id, taskID, r.URL.Query().Get("agent"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// --- Activity & analytics ---

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ActivityListFilter{
		Type:  models.ActivityType(q.Get("type")),
		Agent: q.Get("agent"),
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: "+raw)
			return
		}
		filter.Since = since
	}
	filter.Limit = s.ActivityLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		filter.Limit = limit
	}

	entries, err := s.svc.ListActivity(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Report(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
