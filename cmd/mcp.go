package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/taskboard/internal/daemon"
	"github.com/joescharf/taskboard/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Agents use it to read and move tasks, link tasks to goals and pull
analytics. Configure it in an MCP client with:

  {
    "mcpServers": {
      "tb": { "command": "tb", "args": ["mcp", "--agent", "my-agent"] }
    }
  }

Available tools: tb_list_tasks, tb_create_task, tb_update_task,
tb_list_goals, tb_create_goal, tb_link_task, tb_unlink_task, tb_analytics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), daemon.ShutdownSignals()...)
		defer stop()
		srv := mcp.NewServer(svc, buildVersion)
		srv.DefaultAgent = currentAgent()
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
