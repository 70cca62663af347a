package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/output"
	"github.com/joescharf/taskboard/internal/store"
)

var (
	activityType  string
	activityAgent string
	activitySince string
	activityLimit int
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"log"},
	Short:   "Show the activity feed, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("limit") {
			activityLimit = viper.GetInt("activity.default_limit")
		}
		return activityRun()
	},
}

func init() {
	activityCmd.Flags().StringVar(&activityType, "type", "", "Filter by event type (e.g. task_completed)")
	activityCmd.Flags().StringVar(&activityAgent, "by", "", "Filter by agent")
	activityCmd.Flags().StringVar(&activitySince, "since", "", "Only events after a duration ago (24h) or RFC3339 time")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 50, "Maximum events (0 = all)")
	rootCmd.AddCommand(activityCmd)
}

func activityRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	now := time.Now()
	since, err := parseSince(activitySince, now)
	if err != nil {
		return err
	}

	entries, err := svc.ListActivity(context.Background(), store.ActivityListFilter{
		Type:  models.ActivityType(activityType),
		Agent: activityAgent,
		Since: since,
		Limit: activityLimit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.Info("No activity")
		return nil
	}

	table := ui.Table([]string{"When", "Type", "Agent", "Message"})
	for _, e := range entries {
		agent := e.Agent
		if agent == "" {
			agent = "-"
		}
		table.Append([]string{
			timeAgo(e.CreatedAt, now),
			string(e.Type),
			output.Cyan(agent),
			e.Message,
		})
	}
	return table.Render()
}
