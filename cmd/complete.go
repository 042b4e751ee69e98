package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var completeCmd = &cobra.Command{
	Use:     "complete ID[,ID,...]",
	Aliases: []string{"done"},
	Short:   "Mark a task done",
	Long: `Marks tasks done and moves them to the end of the Done column.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	ids, err := board.ParseIDs(args[0])
	if err != nil {
		return err
	}
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		t, err := resolveTask(sess, ids[0])
		if err != nil {
			return err
		}
		done, err := sess.Complete(cmd.Context(), t.ID)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, done)
		}
		output.Messagef(os.Stdout, "Completed task %s: %s", done.ID, done.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		t, err := resolveTask(sess, id)
		if err != nil {
			return err
		}
		_, err = sess.Complete(cmd.Context(), t.ID)
		return err
	})
}
