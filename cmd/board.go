package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/taskboard/internal/models"
	"github.com/joescharf/taskboard/internal/output"
)

var (
	boardName string
	boardDesc string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards",
	Long:  "Boards group tasks and goals. Deleting a board keeps its tasks and goals.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardListRun()
	},
}

var boardAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardAddRun(args[0])
	},
}

var boardListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardListRun()
	},
}

var boardUpdateCmd = &cobra.Command{
	Use:   "update <board-id>",
	Short: "Rename a board or change its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardUpdateRun(args[0], cmd.Flags().Changed)
	},
}

var boardDeleteCmd = &cobra.Command{
	Use:     "delete <board-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a board",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardDeleteRun(args[0])
	},
}

func init() {
	boardAddCmd.Flags().StringVar(&boardDesc, "desc", "", "Board description")

	boardUpdateCmd.Flags().StringVar(&boardName, "name", "", "New name")
	boardUpdateCmd.Flags().StringVar(&boardDesc, "desc", "", "New description")

	boardCmd.AddCommand(boardAddCmd)
	boardCmd.AddCommand(boardListCmd)
	boardCmd.AddCommand(boardUpdateCmd)
	boardCmd.AddCommand(boardDeleteCmd)
	rootCmd.AddCommand(boardCmd)
}

func boardAddRun(name string) error {
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would create board: %s", name)
		return nil
	}
	b, err := svc.CreateBoard(context.Background(), name, boardDesc, currentAgent())
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	ui.Success("Created board %s: %s", output.Cyan(fmt.Sprintf("#%d", b.ID)), b.Name)
	return nil
}

func boardListRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}
	boards, err := svc.ListBoards(context.Background())
	if err != nil {
		return err
	}
	if len(boards) == 0 {
		ui.Info("No boards yet. Create one with: tb board add <name>")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Description", "Created"})
	for _, b := range boards {
		table.Append([]string{
			fmt.Sprintf("%d", b.ID),
			output.Cyan(b.Name),
			b.Description,
			b.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	return table.Render()
}

func boardUpdateRun(ref string, changed func(string) bool) error {
	id, err := parseID("board", ref)
	if err != nil {
		return err
	}
	var patch models.BoardPatch
	if changed("name") {
		patch.Name = models.Some(boardName)
	}
	if changed("desc") {
		patch.Description = models.Some(boardDesc)
	}

	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would update board #%d (%d fields)", id, patch.FieldCount())
		return nil
	}
	b, err := svc.UpdateBoard(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	ui.Success("Updated board #%d: %s", b.ID, b.Name)
	return nil
}

func boardDeleteRun(ref string) error {
	id, err := parseID("board", ref)
	if err != nil {
		return err
	}
	svc, err := getService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete board #%d", id)
		return nil
	}
	if err := svc.DeleteBoard(context.Background(), id, currentAgent()); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	ui.Success("Deleted board #%d", id)
	return nil
}
