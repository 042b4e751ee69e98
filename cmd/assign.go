package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var assignCmd = &cobra.Command{
	Use:   "assign ID [USER]",
	Short: "Assign a task",
	Long:  `Sets the assignee of a task, or removes it with --clear.`,
	Args:  cobra.RangeArgs(1, 2), //nolint:mnd // id and optional user
	RunE:  runAssign,
}

func init() {
	assignCmd.Flags().Bool("clear", false, "remove the assignee")
	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	unassign, _ := cmd.Flags().GetBool("clear")
	var user *string
	switch {
	case unassign && len(args) == 2:
		return clierr.New(clierr.InvalidInput, "USER and --clear are mutually exclusive")
	case !unassign && len(args) < 2:
		return clierr.New(clierr.InvalidInput, "USER is required unless --clear is given")
	case !unassign:
		user = &args[1]
	}

	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	updated, err := sess.Assign(cmd.Context(), t.ID, user)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, updated)
	}
	if user == nil {
		output.Messagef(os.Stdout, "Unassigned task %s: %s", updated.ID, updated.Title)
		return nil
	}
	output.Messagef(os.Stdout, "Assigned task %s to %s", updated.ID, *user)
	return nil
}
