package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/taskboard/internal/health"
	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/output"
	"github.com/joescharf/taskboard/internal/store"
)

var statusStale bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show board status dashboard",
	Long: `Show a per-board overview: open, in-flight and finished task counts,
a flow health score and the time of the last completion. Tasks without a
board are grouped under "(none)".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusOverviewRun()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusStale, "stale", false, "Show only stale boards (no completion in 7+ days)")
	rootCmd.AddCommand(statusCmd)
}

// boardGroup is one row of the dashboard.
type boardGroup struct {
	name  string
	tasks []*models.Task
}

func statusOverviewRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	boards, err := svc.ListBoards(ctx)
	if err != nil {
		return err
	}
	tasks, err := svc.Tasks.ListTasks(ctx, store.TaskListFilter{})
	if err != nil {
		return err
	}
	if len(boards) == 0 && len(tasks) == 0 {
		ui.Info("Nothing on the board yet. Use 'tb task add <name>' to get started.")
		return nil
	}

	groups := groupByBoard(boards, tasks)
	scorer := health.NewScorer()
	now := scorer.Now()

	table := ui.Table([]string{"Board", "Open", "In Flight", "Finished", "Health", "Last Done"})
	for _, g := range groups {
		h := scorer.Score(g.tasks)
		if statusStale && !h.LastCompletion.IsZero() && now.Sub(h.LastCompletion) < 7*24*time.Hour {
			continue
		}

		open, inFlight, finished := countLanes(g.tasks)
		lastDone := "n/a"
		if !h.LastCompletion.IsZero() {
			lastDone = timeAgo(h.LastCompletion, now)
		}
		table.Append([]string{
			output.Cyan(g.name),
			fmt.Sprintf("%d", open),
			fmt.Sprintf("%d", inFlight),
			fmt.Sprintf("%d", finished),
			healthColor(h.Total),
			lastDone,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	goals, err := svc.ListGoals(ctx, store.GoalListFilter{Status: models.GoalStatusActive})
	if err != nil {
		return err
	}
	if len(goals) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, output.Cyan("Active goals"))
		for _, g := range goals {
			fmt.Fprintf(ui.Out, "  #%-4d %-40s %s %s\n", g.ID, g.Title, output.Bar(g.Progress, 100, 20), output.ProgressColor(g.Progress))
		}
	}
	return nil
}

// groupByBoard buckets tasks per board in board order, then unassigned tasks.
func groupByBoard(boards []*models.Board, tasks []*models.Task) []boardGroup {
	index := make(map[int64]int, len(boards))
	groups := make([]boardGroup, 0, len(boards)+1)
	for _, b := range boards {
		index[b.ID] = len(groups)
		groups = append(groups, boardGroup{name: b.Name})
	}
	var loose []*models.Task
	for _, t := range tasks {
		if t.BoardID != nil {
			if i, ok := index[*t.BoardID]; ok {
				groups[i].tasks = append(groups[i].tasks, t)
				continue
			}
		}
		loose = append(loose, t)
	}
	if len(loose) > 0 {
		groups = append(groups, boardGroup{name: "(none)", tasks: loose})
	}
	return groups
}

func countLanes(tasks []*models.Task) (open, inFlight, finished int) {
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusDone, models.TaskStatusSolved, models.TaskStatusRejected:
			finished++
		case models.TaskStatusInProgress, models.TaskStatusTesting, models.TaskStatusInReview:
			inFlight++
		default:
			open++
		}
	}
	return open, inFlight, finished
}

func healthColor(score int) string {
	s := fmt.Sprintf("%d", score)
	switch {
	case score >= 80:
		return output.Green(s)
	case score >= 50:
		return output.Yellow(s)
	default:
		return output.Red(s)
	}
}
