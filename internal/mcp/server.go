package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
	"github.com/joescharf/taskboard/internal/tracker"
)

// Server exposes the board to agents as MCP tools.
type Server struct {
	svc     *tracker.Service
	version string

	// DefaultAgent attributes calls that do not name an agent.
	DefaultAgent string
}

// NewServer creates the MCP server wrapper.
func NewServer(svc *tracker.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{svc: svc, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tb", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listTasksTool())
	srv.AddTool(s.createTaskTool())
	srv.AddTool(s.updateTaskTool())
	srv.AddTool(s.listGoalsTool())
	srv.AddTool(s.createGoalTool())
	srv.AddTool(s.linkTaskTool())
	srv.AddTool(s.unlinkTaskTool())
	srv.AddTool(s.analyticsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// has reports whether the caller supplied key at all.
func has(request mcp.CallToolRequest, key string) bool {
	_, ok := request.GetArguments()[key]
	return ok
}

func (s *Server) agent(request mcp.CallToolRequest) string {
	return request.GetString("agent", s.DefaultAgent)
}

// wholeNumber reads an integer argument, rejecting fractional numbers.
func wholeNumber(request mcp.CallToolRequest, key string) (int, error) {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
}

// optionalID returns a pointer to a positive integer argument, or nil.
func optionalID(request mcp.CallToolRequest, key string) *int64 {
	if id := int64(request.GetInt(key, 0)); id > 0 {
		return &id
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// tb_list_tasks
func (s *Server) listTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_list_tasks",
		mcp.WithDescription("List tasks ordered by position. Returns a JSON array of tasks."),
		mcp.WithNumber("board_id", mcp.Description("Only tasks on this board")),
		mcp.WithString("status", mcp.Description("Only tasks in this lane: inbox, up_next, in_progress, testing, in_review, done, solved, rejected")),
	)
	return tool, s.handleListTasks
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.TaskListFilter{
		BoardID: optionalID(request, "board_id"),
		Status:  models.TaskStatus(request.GetString("status", "")),
	}
	tasks, err := s.svc.Tasks.ListTasks(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return jsonResult(tasks)
}

// tb_create_task
func (s *Server) createTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_create_task",
		mcp.WithDescription("Create a task in the inbox lane. Returns the created task as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Task name")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority: low, medium, high, urgent (default: medium)")),
		mcp.WithNumber("board_id", mcp.Description("Board to place the task on")),
		mcp.WithNumber("position", mcp.Description("Position within the lane")),
		mcp.WithString("agent", mcp.Description("Agent performing the action")),
	)
	return tool, s.handleCreateTask
}

func (s *Server) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	task, err := s.svc.Tasks.CreateTask(ctx, models.TaskInput{
		Name:        name,
		Description: request.GetString("description", ""),
		Priority:    models.TaskPriority(request.GetString("priority", "")),
		Position:    request.GetInt("position", 0),
		BoardID:     optionalID(request, "board_id"),
		Agent:       s.agent(request),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create task: %v", err)), nil
	}
	return jsonResult(task)
}

// tb_update_task
func (s *Server) updateTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_update_task",
		mcp.WithDescription("Update a task. Provide the task ID and at least one field. Moving to done or solved stamps completed_at; ratings are kept only on done/solved and rejection reasons only on rejected. Returns the updated task as JSON."),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New lane: inbox, up_next, in_progress, testing, in_review, done, solved, rejected")),
		mcp.WithString("priority", mcp.Description("New priority: low, medium, high, urgent")),
		mcp.WithNumber("position", mcp.Description("New position")),
		mcp.WithNumber("rating", mcp.Description("Quality rating 1-5")),
		mcp.WithString("rejection_reason", mcp.Description("Why the task was rejected")),
		mcp.WithString("agent", mcp.Description("Agent performing the action")),
	)
	return tool, s.handleUpdateTask
}

func (s *Server) handleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireInt("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}

	patch := models.TaskPatch{Agent: s.agent(request)}
	if has(request, "name") {
		patch.Name = models.Some(request.GetString("name", ""))
	}
	if has(request, "description") {
		patch.Description = models.Some(request.GetString("description", ""))
	}
	if has(request, "status") {
		patch.Status = models.Some(models.TaskStatus(request.GetString("status", "")))
	}
	if has(request, "priority") {
		patch.Priority = models.Some(models.TaskPriority(request.GetString("priority", "")))
	}
	for _, key := range []string{"position", "rating"} {
		if !has(request, key) {
			continue
		}
		n, err := wholeNumber(request, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if key == "position" {
			patch.Position = models.Some(n)
		} else {
			patch.Rating = models.Some(n)
		}
	}
	if has(request, "rejection_reason") {
		patch.RejectionReason = models.Some(request.GetString("rejection_reason", ""))
	}
	if patch.FieldCount() == 0 {
		return mcp.NewToolResultError("no fields provided to update; specify at least one of: name, description, status, priority, position, rating, rejection_reason"), nil
	}

	task, err := s.svc.Tasks.UpdateTask(ctx, int64(taskID), patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update task: %v", err)), nil
	}
	return jsonResult(task)
}

// ---------------------------------------------------------------------------
// Goals and links
// ---------------------------------------------------------------------------

// tb_list_goals
func (s *Server) listGoalsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_list_goals",
		mcp.WithDescription("List goals with their derived progress. Returns a JSON array of goals."),
		mcp.WithString("type", mcp.Description("Filter by type: global, agent")),
		mcp.WithString("agent_id", mcp.Description("Filter by owning agent")),
		mcp.WithNumber("board_id", mcp.Description("Filter by board")),
		mcp.WithString("status", mcp.Description("Filter by status: active, paused, achieved")),
	)
	return tool, s.handleListGoals
}

func (s *Server) handleListGoals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := s.svc.ListGoals(ctx, store.GoalListFilter{
		Type:    models.GoalType(request.GetString("type", "")),
		AgentID: request.GetString("agent_id", ""),
		BoardID: optionalID(request, "board_id"),
		Status:  models.GoalStatus(request.GetString("status", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list goals: %v", err)), nil
	}
	if goals == nil {
		goals = []*models.Goal{}
	}
	return jsonResult(goals)
}

// tb_create_goal
func (s *Server) createGoalTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_create_goal",
		mcp.WithDescription("Create a goal. Agent goals require agent_id. Returns the created goal as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Goal title")),
		mcp.WithString("description", mcp.Description("Goal description")),
		mcp.WithString("type", mcp.Description("global or agent (default: global)")),
		mcp.WithString("agent_id", mcp.Description("Owning agent, required for agent goals")),
		mcp.WithNumber("board_id", mcp.Description("Board scope")),
		mcp.WithString("agent", mcp.Description("Agent performing the action")),
	)
	return tool, s.handleCreateGoal
}

func (s *Server) handleCreateGoal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	in := models.GoalInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Type:        models.GoalType(request.GetString("type", "")),
		BoardID:     optionalID(request, "board_id"),
		Agent:       s.agent(request),
	}
	if agentID := request.GetString("agent_id", ""); agentID != "" {
		in.AgentID = &agentID
	}
	goal, err := s.svc.CreateGoal(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create goal: %v", err)), nil
	}
	return jsonResult(goal)
}

// tb_link_task
func (s *Server) linkTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_link_task",
		mcp.WithDescription("Link a task to a goal and recalculate the goal's progress. Returns the goal with its linked tasks as JSON."),
		mcp.WithNumber("goal_id", mcp.Required(), mcp.Description("Goal ID")),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("agent", mcp.Description("Agent performing the action")),
	)
	return tool, s.handleLinkTask
}

func (s *Server) handleLinkTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := request.RequireInt("goal_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: goal_id"), nil
	}
	taskID, err := request.RequireInt("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}
	view, err := s.svc.Links.Link(ctx, int64(goalID), int64(taskID), s.agent(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to link task: %v", err)), nil
	}
	return jsonResult(view)
}

// tb_unlink_task
func (s *Server) unlinkTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_unlink_task",
		mcp.WithDescription("Remove a task from a goal and recalculate the goal's progress. Returns the goal as JSON."),
		mcp.WithNumber("goal_id", mcp.Required(), mcp.Description("Goal ID")),
		mcp.WithNumber("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("agent", mcp.Description("Agent performing the action")),
	)
	return tool, s.handleUnlinkTask
}

func (s *Server) handleUnlinkTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goalID, err := request.RequireInt("goal_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: goal_id"), nil
	}
	taskID, err := request.RequireInt("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}
	goal, err := s.svc.Links.Unlink(ctx, int64(goalID), int64(taskID), s.agent(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to unlink task: %v", err)), nil
	}
	return jsonResult(goal)
}

// ---------------------------------------------------------------------------
// Analytics
// ---------------------------------------------------------------------------

// tb_analytics
func (s *Server) analyticsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tb_analytics",
		mcp.WithDescription("Productivity analytics: completion series, streak, distributions and per-agent attribution. Returns JSON."),
	)
	return tool, s.handleAnalytics
}

func (s *Server) handleAnalytics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute analytics: %v", err)), nil
	}
	return jsonResult(report)
}
