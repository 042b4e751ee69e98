package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show task details",
	Long: `Displays a task with its description, comments, time entries and activity.
ID may be a unique prefix of the task ID.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	d, err := sess.Detail(cmd.Context(), t.ID)
	if err != nil {
		return err
	}

	cols := sess.Store.Columns()
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, d)
	case output.FormatCompact:
		output.TaskDetailCompact(os.Stdout, d, cols)
	default:
		output.TaskDetail(os.Stdout, d, cols)
	}
	return nil
}
