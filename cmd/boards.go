package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List boards",
	Long:  `Lists the boards you own or that were shared with you.`,
	Args:  cobra.NoArgs,
	RunE:  runBoards,
}

var boardsShareCmd = &cobra.Command{
	Use:   "share USER",
	Short: "Share the board with another user",
	Long: `Grants USER access to the current board (see --board). The board is
shared read-only unless --edit is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runBoardsShare,
}

func init() {
	boardsShareCmd.Flags().Bool("edit", false, "allow the user to edit tasks")
	boardsCmd.AddCommand(boardsShareCmd)
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	boards, err := client.GetBoards(cmd.Context())
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, boards)
	case output.FormatCompact:
		output.BoardsCompact(os.Stdout, boards)
	default:
		output.BoardsTable(os.Stdout, boards)
	}
	return nil
}

func runBoardsShare(cmd *cobra.Command, args []string) error {
	sess, cfg, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	canEdit, _ := cmd.Flags().GetBool("edit")

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	b := sess.Board()
	if err := client.ShareBoard(cmd.Context(), b.ID, args[0], canEdit); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"board_id": b.ID,
			"user_id":  args[0],
			"can_edit": canEdit,
		})
	}
	mode := "read-only"
	if canEdit {
		mode = "edit"
	}
	output.Messagef(os.Stdout, "Shared %s with %s (%s)", b.Name, args[0], mode)
	return nil
}
