package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Record or list tracked time",
}

var timeAddCmd = &cobra.Command{
	Use:   "add ID DURATION",
	Short: "Add a manual time entry",
	Long: `Records a completed time entry on a task. DURATION is whole minutes
("45") or a Go duration ("1h30m").`,
	Args: cobra.ExactArgs(2), //nolint:mnd // id and duration
	RunE: runTimeAdd,
}

var timeListCmd = &cobra.Command{
	Use:   "list ID",
	Short: "List the time entries of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeList,
}

func init() {
	timeCmd.AddCommand(timeAddCmd, timeListCmd)
	rootCmd.AddCommand(timeCmd)
}

// parseMinutes accepts whole minutes or a duration string.
func parseMinutes(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, clierr.Newf(clierr.InvalidInput, "invalid duration %q: use minutes or e.g. 1h30m", s).
			WithDetails(map[string]any{"input": s})
	}
	return int(d.Round(time.Minute) / time.Minute), nil
}

func runTimeAdd(cmd *cobra.Command, args []string) error {
	minutes, err := parseMinutes(args[1])
	if err != nil {
		return err
	}
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	e, err := sess.AddTime(cmd.Context(), t.ID, minutes)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, e)
	}
	output.Messagef(os.Stdout, "Added %s to %s", output.FormatMinutes(e.Minutes()), t.Title)
	return nil
}

func runTimeList(cmd *cobra.Command, args []string) error {
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

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, d.TimeEntries)
	}
	output.EntriesTable(os.Stdout, d.TimeEntries, time.Now())
	return nil
}
