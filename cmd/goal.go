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
	goalTitle   string
	goalDesc    string
	goalType    string
	goalAgentID string
	goalStatus  string
	goalBoard   int64
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goals and their linked tasks",
	Long: `Goals roll up linked tasks into a progress percentage: the share of
linked tasks that are done. Global goals belong to everyone; agent goals
belong to one agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalListRun()
	},
}

var goalAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalAddRun(args[0])
	},
}

var goalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalListRun()
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <goal-id>",
	Short: "Show a goal and its linked tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalShowRun(args[0])
	},
}

var goalUpdateCmd = &cobra.Command{
	Use:   "update <goal-id>",
	Short: "Update a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalUpdateRun(args[0], cmd.Flags().Changed)
	},
}

var goalAchieveCmd = &cobra.Command{
	Use:   "achieve <goal-id>",
	Short: "Mark a goal achieved (progress 100%)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalAchieveRun(args[0])
	},
}

var goalLinkCmd = &cobra.Command{
	Use:   "link <goal-id> <task-id>",
	Short: "Link a task to a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalLinkRun(args[0], args[1])
	},
}

var goalUnlinkCmd = &cobra.Command{
	Use:   "unlink <goal-id> <task-id>",
	Short: "Remove a task from a goal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalUnlinkRun(args[0], args[1])
	},
}

var goalDeleteCmd = &cobra.Command{
	Use:     "delete <goal-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a goal (its tasks are kept)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalDeleteRun(args[0])
	},
}

func init() {
	goalAddCmd.Flags().StringVar(&goalDesc, "desc", "", "Goal description")
	goalAddCmd.Flags().StringVar(&goalType, "type", "global", "Type: global, agent")
	goalAddCmd.Flags().StringVar(&goalAgentID, "agent-id", "", "Owning agent (agent goals only)")
	goalAddCmd.Flags().Int64Var(&goalBoard, "board", 0, "Board id")

	goalListCmd.Flags().StringVar(&goalType, "type", "", "Filter by type")
	goalListCmd.Flags().StringVar(&goalAgentID, "agent-id", "", "Filter by owning agent")
	goalListCmd.Flags().StringVar(&goalStatus, "status", "", "Filter by status: active, paused, achieved")
	goalListCmd.Flags().Int64Var(&goalBoard, "board", 0, "Filter by board id")

	goalUpdateCmd.Flags().StringVar(&goalTitle, "title", "", "New title")
	goalUpdateCmd.Flags().StringVar(&goalDesc, "desc", "", "New description")
	goalUpdateCmd.Flags().StringVar(&goalType, "type", "", "New type")
	goalUpdateCmd.Flags().StringVar(&goalAgentID, "agent-id", "", "New owning agent (empty clears)")
	goalUpdateCmd.Flags().StringVar(&goalStatus, "status", "", "New status")
	goalUpdateCmd.Flags().Int64Var(&goalBoard, "board", 0, "Move to board id (0 detaches)")

	goalCmd.AddCommand(goalAddCmd)
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalUpdateCmd)
	goalCmd.AddCommand(goalAchieveCmd)
	goalCmd.AddCommand(goalLinkCmd)
	goalCmd.AddCommand(goalUnlinkCmd)
	goalCmd.AddCommand(goalDeleteCmd)
	rootCmd.AddCommand(goalCmd)
}

func goalAddRun(title string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	in := models.GoalInput{
		Title:       title,
		Description: goalDesc,
		Type:        models.GoalType(goalType),
		BoardID:     optionalBoard(goalBoard),
		Agent:       currentAgent(),
	}
	if goalAgentID != "" {
		in.AgentID = &goalAgentID
	}
	if dryRun {
		ui.DryRunMsg("Would create %s goal: %s", goalType, title)
		return nil
	}

	g, err := svc.CreateGoal(context.Background(), in)
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	ui.Success("Created goal %s: %s", output.Cyan(fmt.Sprintf("#%d", g.ID)), g.Title)
	return nil
}

func goalListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	goals, err := svc.ListGoals(context.Background(), store.GoalListFilter{
		Type:    models.GoalType(goalType),
		AgentID: goalAgentID,
		BoardID: optionalBoard(goalBoard),
		Status:  models.GoalStatus(goalStatus),
	})
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		ui.Info("No goals found")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Type", "Agent", "Status", "Progress", "Board"})
	for _, g := range goals {
		agent := "-"
		if g.AgentID != nil {
			agent = *g.AgentID
		}
		table.Append([]string{
			fmt.Sprintf("%d", g.ID),
			g.Title,
			string(g.Type),
			agent,
			output.StatusColor(string(g.Status)),
			output.ProgressColor(g.Progress),
			formatBoard(g.BoardID),
		})
	}
	return table.Render()
}

func goalShowRun(ref string) error {
	id, err := parseID("goal", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	view, err := svc.GetGoal(context.Background(), id)
	if err != nil {
		return err
	}

	g := view.Goal
	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(fmt.Sprintf("#%d", g.ID)), g.Title)
	fmt.Fprintf(ui.Out, "  Type:     %s\n", g.Type)
	if g.AgentID != nil {
		fmt.Fprintf(ui.Out, "  Agent:    %s\n", *g.AgentID)
	}
	fmt.Fprintf(ui.Out, "  Status:   %s\n", output.StatusColor(string(g.Status)))
	fmt.Fprintf(ui.Out, "  Progress: %s %s\n", output.ProgressColor(g.Progress), output.Bar(g.Progress, 100, 20))
	if g.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:     %s\n", g.Description)
	}
	fmt.Fprintln(ui.Out)

	if len(view.Tasks) == 0 {
		ui.Info("No linked tasks. Link one with: tb goal link %d <task-id>", g.ID)
		return nil
	}
	table := ui.Table([]string{"ID", "Task", "Status", "Priority"})
	for _, t := range view.Tasks {
		table.Append([]string{
			fmt.Sprintf("%d", t.ID),
			t.Name,
			output.StatusColor(string(t.Status)),
			output.PriorityColor(string(t.Priority)),
		})
	}
	return table.Render()
}

func goalUpdateRun(ref string, changed func(string) bool) error {
	id, err := parseID("goal", ref)
	if err != nil {
		return err
	}

	patch := models.GoalPatch{Agent: currentAgent()}
	if changed("title") {
		patch.Title = models.Some(goalTitle)
	}
	if changed("desc") {
		patch.Description = models.Some(goalDesc)
	}
	if changed("type") {
		patch.Type = models.Some(models.GoalType(goalType))
	}
	if changed("agent-id") {
		if goalAgentID == "" {
			patch.AgentID = models.Null[string]()
		} else {
			patch.AgentID = models.Some(goalAgentID)
		}
	}
	if changed("status") {
		patch.Status = models.Some(models.GoalStatus(goalStatus))
	}
	if changed("board") {
		if goalBoard > 0 {
			patch.BoardID = models.Some(goalBoard)
		} else {
			patch.BoardID = models.Null[int64]()
		}
	}
	if patch.FieldCount() == 0 {
		return fmt.Errorf("nothing to update: pass at least one of --title, --desc, --type, --agent-id, --status, --board")
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would update goal #%d (%d fields)", id, patch.FieldCount())
		return nil
	}
	g, err := svc.UpdateGoal(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	ui.Success("Updated goal #%d: %s [%s, %s]", g.ID, g.Title, output.StatusColor(string(g.Status)), output.ProgressColor(g.Progress))
	return nil
}

func goalAchieveRun(ref string) error {
	id, err := parseID("goal", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would mark goal #%d achieved", id)
		return nil
	}
	g, err := svc.AchieveGoal(context.Background(), id, currentAgent())
	if err != nil {
		return fmt.Errorf("achieve goal: %w", err)
	}
	ui.Success("Goal #%d achieved: %s", g.ID, g.Title)
	return nil
}

func parseLinkArgs(goalRef, taskRef string) (int64, int64, error) {
	goalID, err := parseID("goal", goalRef)
	if err != nil {
		return 0, 0, err
	}
	taskID, err := parseID("task", taskRef)
	if err != nil {
		return 0, 0, err
	}
	return goalID, taskID, nil
}

func goalLinkRun(goalRef, taskRef string) error {
	goalID, taskID, err := parseLinkArgs(goalRef, taskRef)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would link task #%d to goal #%d", taskID, goalID)
		return nil
	}
	view, err := svc.Links.Link(context.Background(), goalID, taskID, currentAgent())
	if err != nil {
		return fmt.Errorf("link task: %w", err)
	}
	ui.Success("Linked task #%d to goal #%d (%s, %d tasks)", taskID, goalID, output.ProgressColor(view.Goal.Progress), len(view.Tasks))
	return nil
}

func goalUnlinkRun(goalRef, taskRef string) error {
	goalID, taskID, err := parseLinkArgs(goalRef, taskRef)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would unlink task #%d from goal #%d", taskID, goalID)
		return nil
	}
	g, err := svc.Links.Unlink(context.Background(), goalID, taskID, currentAgent())
	if err != nil {
		return fmt.Errorf("unlink task: %w", err)
	}
	ui.Success("Unlinked task #%d from goal #%d (%s)", taskID, goalID, output.ProgressColor(g.Progress))
	return nil
}

func goalDeleteRun(ref string) error {
	id, err := parseID("goal", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete goal #%d", id)
		return nil
	}
	if err := svc.DeleteGoal(context.Background(), id, currentAgent()); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	ui.Success("Deleted goal #%d", id)
	return nil
}
