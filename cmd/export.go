package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/store"
	"github.com/joescharf/taskboard/internal/tracker"
)

var (
	exportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, YAML, CSV, or Markdown",
	Long:  "Export tasks, goals, boards, activity, or the analytics report in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, yaml, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "tasks", "Data type: tasks, goals, boards, activity, analytics")
	rootCmd.AddCommand(exportCmd)
}

// table is a flat rendering used by the csv and markdown formats.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func exportRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	data, tbl, err := exportData(context.Background(), svc, exportType)
	if err != nil {
		return err
	}
	return writeExport(ui.Out, exportFormat, data, tbl)
}

// exportData loads one data type as both its structured value and a flat table.
func exportData(ctx context.Context, svc *tracker.Service, kind string) (any, *table, error) {
	switch kind {
	case "tasks":
		tasks, err := svc.Tasks.ListTasks(ctx, store.TaskListFilter{})
		if err != nil {
			return nil, nil, err
		}
		return tasks, tasksTable(tasks), nil
	case "goals":
		goals, err := svc.ListGoals(ctx, store.GoalListFilter{})
		if err != nil {
			return nil, nil, err
		}
		return goals, goalsTable(goals), nil
	case "boards":
		boards, err := svc.ListBoards(ctx)
		if err != nil {
			return nil, nil, err
		}
		t := &table{title: "Boards", headers: []string{"ID", "Name", "Description", "Created"}}
		for _, b := range boards {
			t.rows = append(t.rows, []string{strconv.FormatInt(b.ID, 10), b.Name, b.Description, b.CreatedAt.Format(time.DateOnly)})
		}
		return boards, t, nil
	case "activity":
		entries, err := svc.ListActivity(ctx, store.ActivityListFilter{})
		if err != nil {
			return nil, nil, err
		}
		t := &table{title: "Activity", headers: []string{"ID", "Type", "Agent", "Message", "Created"}}
		for _, e := range entries {
			t.rows = append(t.rows, []string{e.ID, string(e.Type), e.Agent, e.Message, e.CreatedAt.Format(time.RFC3339)})
		}
		return entries, t, nil
	case "analytics":
		r, err := svc.Report(ctx)
		if err != nil {
			return nil, nil, err
		}
		t := &table{title: "Agents", headers: []string{"Agent", "Actions", "Last Active", "Avg Rating", "Rated"}}
		for _, a := range r.Agents {
			t.rows = append(t.rows, []string{a.Agent, strconv.Itoa(a.Actions), a.LastActive.Format(time.RFC3339),
				strconv.FormatFloat(a.AvgRating, 'f', 1, 64), strconv.Itoa(a.RatedTasks)})
		}
		return r, t, nil
	default:
		return nil, nil, fmt.Errorf("unknown export type: %s (use: tasks, goals, boards, activity, analytics)", kind)
	}
}

func tasksTable(tasks []*models.Task) *table {
	t := &table{title: "Tasks", headers: []string{"ID", "Name", "Status", "Priority", "Position", "Rating", "Board", "Created", "Completed"}}
	for _, task := range tasks {
		rating, completed := "", ""
		if task.Rating != nil {
			rating = strconv.Itoa(*task.Rating)
		}
		if task.CompletedAt != nil {
			completed = task.CompletedAt.Format(time.RFC3339)
		}
		board := ""
		if task.BoardID != nil {
			board = strconv.FormatInt(*task.BoardID, 10)
		}
		t.rows = append(t.rows, []string{strconv.FormatInt(task.ID, 10), task.Name, string(task.Status), string(task.Priority),
			strconv.Itoa(task.Position), rating, board, task.CreatedAt.Format(time.RFC3339), completed})
	}
	return t
}

func goalsTable(goals []*models.Goal) *table {
	t := &table{title: "Goals", headers: []string{"ID", "Title", "Type", "Agent", "Status", "Progress"}}
	for _, g := range goals {
		agent := ""
		if g.AgentID != nil {
			agent = *g.AgentID
		}
		t.rows = append(t.rows, []string{strconv.FormatInt(g.ID, 10), g.Title, string(g.Type), agent, string(g.Status), strconv.Itoa(g.Progress)})
	}
	return t
}

func writeExport(w io.Writer, format string, data any, t *table) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		// Round-trip through JSON so YAML keys match the API field names.
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(t.headers); err != nil {
			return err
		}
		if err := cw.WriteAll(t.rows); err != nil {
			return err
		}
		return cw.Error()
	case "markdown":
		fmt.Fprintf(w, "# %s\n\n", t.title)
		fmt.Fprintf(w, "| %s |\n", strings.Join(t.headers, " | "))
		seps := make([]string, len(t.headers))
		for i, h := range t.headers {
			seps[i] = strings.Repeat("-", max(len(h), 3))
		}
		fmt.Fprintf(w, "|%s|\n", "-"+strings.Join(seps, "-|-")+"-")
		for _, row := range t.rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.ReplaceAll(c, "|", `\|`)
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
