package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/output"
	"github.com/joescharf/taskboard/internal/store"
)

var (
	taskName     string
	taskDesc     string
	taskPriority string
	taskStatus   string
	taskBoard    int64
	taskPosition int
	taskRating   int
	taskReason   string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks on the board",
	Long: `Track tasks through the lanes inbox, up_next, in_progress, testing,
in_review, done, solved and rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a task to the inbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskAddRun(args[0])
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks by position",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskShowRun(args[0])
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskUpdateRun(args[0], cmd.Flags().Changed)
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <task-id> <status>",
	Short: "Move a task to another lane",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskStatus = args[1]
		return taskUpdateRun(args[0], func(name string) bool { return name == "status" })
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task done, optionally with a 1-5 rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskStatus = string(models.TaskStatusDone)
		rated := cmd.Flags().Changed("rating")
		return taskUpdateRun(args[0], func(name string) bool {
			return name == "status" || (name == "rating" && rated)
		})
	},
}

var taskRejectCmd = &cobra.Command{
	Use:   "reject <task-id>",
	Short: "Reject a task with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskStatus = string(models.TaskStatusRejected)
		return taskUpdateRun(args[0], func(name string) bool {
			return name == "status" || name == "reason"
		})
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete <task-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a task and its goal links",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDeleteRun(args[0])
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "Priority: low, medium, high, urgent")
	taskAddCmd.Flags().Int64Var(&taskBoard, "board", 0, "Board id")
	taskAddCmd.Flags().IntVar(&taskPosition, "position", 0, "Position within the lane")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status")
	taskListCmd.Flags().Int64Var(&taskBoard, "board", 0, "Filter by board id")

	taskUpdateCmd.Flags().StringVar(&taskName, "name", "", "New name")
	taskUpdateCmd.Flags().StringVar(&taskDesc, "desc", "", "New description")
	taskUpdateCmd.Flags().StringVar(&taskStatus, "status", "", "New status")
	taskUpdateCmd.Flags().StringVar(&taskPriority, "priority", "", "New priority")
	taskUpdateCmd.Flags().Int64Var(&taskBoard, "board", 0, "Move to board id (0 detaches)")
	taskUpdateCmd.Flags().IntVar(&taskPosition, "position", 0, "New position")
	taskUpdateCmd.Flags().IntVar(&taskRating, "rating", 0, "Rating 1-5 (done/solved only)")
	taskUpdateCmd.Flags().StringVar(&taskReason, "reason", "", "Rejection reason (rejected only)")

	taskDoneCmd.Flags().IntVar(&taskRating, "rating", 0, "Rating 1-5")
	taskRejectCmd.Flags().StringVar(&taskReason, "reason", "", "Why the task was rejected")
	_ = taskRejectCmd.MarkFlagRequired("reason")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRejectCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskAddRun(name string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would add task: %s [%s]", name, taskPriority)
		return nil
	}

	t, err := svc.Tasks.CreateTask(context.Background(), models.TaskInput{
		Name:        name,
		Description: taskDesc,
		Priority:    models.TaskPriority(taskPriority),
		Position:    taskPosition,
		BoardID:     optionalBoard(taskBoard),
		Agent:       currentAgent(),
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	ui.Success("Created task %s: %s", output.Cyan(fmt.Sprintf("#%d", t.ID)), t.Name)
	return nil
}

func taskListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	tasks, err := svc.Tasks.ListTasks(context.Background(), store.TaskListFilter{
		BoardID: optionalBoard(taskBoard),
		Status:  models.TaskStatus(taskStatus),
	})
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		ui.Info("No tasks found")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Status", "Priority", "Pos", "Rating", "Board"})
	for _, t := range tasks {
		table.Append([]string{
			fmt.Sprintf("%d", t.ID),
			t.Name,
			output.StatusColor(string(t.Status)),
			output.PriorityColor(string(t.Priority)),
			fmt.Sprintf("%d", t.Position),
			formatRating(t.Rating),
			formatBoard(t.BoardID),
		})
	}
	return table.Render()
}

func taskShowRun(ref string) error {
	id, err := parseID("task", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()
	t, err := svc.Tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(fmt.Sprintf("#%d", t.ID)), t.Name)
	fmt.Fprintf(ui.Out, "  Status:    %s\n", output.StatusColor(string(t.Status)))
	fmt.Fprintf(ui.Out, "  Priority:  %s\n", output.PriorityColor(string(t.Priority)))
	fmt.Fprintf(ui.Out, "  Position:  %d\n", t.Position)
	fmt.Fprintf(ui.Out, "  Board:     %s\n", formatBoard(t.BoardID))
	if t.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:      %s\n", t.Description)
	}
	if t.Rating != nil {
		fmt.Fprintf(ui.Out, "  Rating:    %d/5\n", *t.Rating)
	}
	if t.RejectionReason != nil {
		fmt.Fprintf(ui.Out, "  Rejected:  %s\n", *t.RejectionReason)
	}
	fmt.Fprintf(ui.Out, "  Created:   %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	if t.CompletedAt != nil {
		fmt.Fprintf(ui.Out, "  Completed: %s\n", t.CompletedAt.Local().Format("2006-01-02 15:04"))
	}

	goalIDs, err := svc.Store().ListTaskGoalIDs(ctx, t.ID)
	if err == nil && len(goalIDs) > 0 {
		fmt.Fprintf(ui.Out, "  Goals:     %v\n", goalIDs)
	}
	return nil
}

// taskUpdateRun applies the flags reported by changed as a patch.
func taskUpdateRun(ref string, changed func(string) bool) error {
	id, err := parseID("task", ref)
	if err != nil {
		return err
	}

	patch := models.TaskPatch{Agent: currentAgent()}
	if changed("name") {
		patch.Name = models.Some(taskName)
	}
	if changed("desc") {
		patch.Description = models.Some(taskDesc)
	}
	if changed("status") {
		patch.Status = models.Some(models.TaskStatus(taskStatus))
	}
	if changed("priority") {
		patch.Priority = models.Some(models.TaskPriority(taskPriority))
	}
	if changed("board") {
		if taskBoard > 0 {
			patch.BoardID = models.Some(taskBoard)
		} else {
			patch.BoardID = models.Null[int64]()
		}
	}
	if changed("position") {
		patch.Position = models.Some(taskPosition)
	}
	if changed("rating") {
		patch.Rating = models.Some(taskRating)
	}
	if changed("reason") {
		patch.RejectionReason = models.Some(taskReason)
	}
	if patch.FieldCount() == 0 {
		return fmt.Errorf("nothing to update: pass at least one of --name, --desc, --status, --priority, --board, --position, --rating, --reason")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would update task #%d (%d fields)", id, patch.FieldCount())
		return nil
	}

	t, err := svc.Tasks.UpdateTask(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	ui.Success("Updated task #%d: %s [%s]", t.ID, t.Name, output.StatusColor(string(t.Status)))
	return nil
}

func taskDeleteRun(ref string) error {
	id, err := parseID("task", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete task #%d", id)
		return nil
	}
	if err := svc.Tasks.DeleteTask(context.Background(), id, currentAgent()); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	ui.Success("Deleted task #%d", id)
	return nil
}
