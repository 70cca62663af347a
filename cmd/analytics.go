package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/taskboard/internal/analytics"
	"github.com/joescharf/taskboard/internal/output"
)

const barWidth = 30

var (
	analyticsJSON bool
	analyticsDays int
)

var analyticsCmd = &cobra.Command{
	Use:     "analytics",
	Aliases: []string{"stats"},
	Short:   "Show productivity analytics",
	Long: `Show completion counts, streak, distributions and per-agent activity.
Completions count tasks in the done lane only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyticsRun()
	},
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print the full report as JSON")
	analyticsCmd.Flags().IntVar(&analyticsDays, "days", 14, "Days of the daily series to chart (max 30)")
	rootCmd.AddCommand(analyticsCmd)
}

func analyticsRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	r, err := svc.Report(context.Background())
	if err != nil {
		return err
	}

	if analyticsJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return renderReport(r, analyticsDays)
}

func renderReport(r *analytics.Report, days int) error {
	p := r.Productivity
	fmt.Fprintln(ui.Out, output.Cyan("Productivity"))
	fmt.Fprintf(ui.Out, "  Today: %d   Week: %d   Month: %d\n", p.Today, p.ThisWeek, p.ThisMonth)
	fmt.Fprintf(ui.Out, "  Avg completion: %dh   Streak: %d days\n", p.AvgCompletionHours, p.Streak)
	fmt.Fprintln(ui.Out)

	daily := r.Completions.Daily
	if days > 0 && days < len(daily) {
		daily = daily[len(daily)-days:]
	}
	fmt.Fprintln(ui.Out, output.Cyan("Completions per day"))
	maxCount := 0
	for _, b := range daily {
		maxCount = max(maxCount, b.Count)
	}
	for _, b := range daily {
		fmt.Fprintf(ui.Out, "  %s %3d %s\n", b.Label, b.Count, output.Bar(b.Count, maxCount, barWidth))
	}
	fmt.Fprintln(ui.Out)

	fmt.Fprintln(ui.Out, output.Cyan("Open work by priority"))
	for _, kc := range r.Distributions.Priority {
		fmt.Fprintf(ui.Out, "  %-8s %d\n", output.PriorityColor(kc.Key), kc.Count)
	}
	fmt.Fprintln(ui.Out)

	fmt.Fprintln(ui.Out, output.Cyan("Tasks by status"))
	for _, kc := range r.Distributions.Status {
		fmt.Fprintf(ui.Out, "  %-12s %d\n", output.StatusColor(kc.Key), kc.Count)
	}
	fmt.Fprintln(ui.Out)

	if len(r.Agents) == 0 {
		ui.Info("No agent activity yet")
		return nil
	}
	table := ui.Table([]string{"Agent", "Actions", "Last Active", "Avg Rating", "Rated"})
	for _, a := range r.Agents {
		rating := "-"
		if a.RatedTasks > 0 {
			rating = fmt.Sprintf("%.1f", a.AvgRating)
		}
		table.Append([]string{
			output.Cyan(a.Agent),
			fmt.Sprintf("%d", a.Actions),
			timeAgo(a.LastActive, r.GeneratedAt),
			rating,
			fmt.Sprintf("%d", a.RatedTasks),
		})
	}
	return table.Render()
}
