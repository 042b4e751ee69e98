package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Aliases: []string{"cal"},
	Short:   "Show tasks by due date",
	Long: `Lists dated tasks bucketed by the local day they are due, plus the backlog.
Days are computed in view.timezone (default: the local zone).

Use --from/--to to limit the days shown, or --days to show a window
starting at --from (default today).`,
	Args: cobra.NoArgs,
	RunE: runCalendar,
}

func init() {
	addFilterFlags(calendarCmd)
	calendarCmd.Flags().String("from", "", "first day to show (YYYY-MM-DD)")
	calendarCmd.Flags().String("to", "", "last day to show (YYYY-MM-DD)")
	calendarCmd.Flags().Int("days", 0, "number of days to show starting at --from")
	rootCmd.AddCommand(calendarCmd)
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	sess, cfg, opts, err := openFiltered(cmd)
	if err != nil {
		return err
	}
	loc := cfg.Location()

	from, to, err := calendarWindow(cmd, date.Today(loc))
	if err != nil {
		return err
	}
	view := board.Calendar(sess.Store.Columns(), sess.Store.Tasks(), opts, loc).Window(from, to)

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, view)
	case output.FormatCompact:
		output.CalendarCompact(os.Stdout, view)
	default:
		output.CalendarTable(os.Stdout, view)
	}
	return nil
}

// calendarWindow reads --from, --to and --days. Zero bounds are open.
func calendarWindow(cmd *cobra.Command, today date.Date) (from, to date.Date, err error) {
	fromArg, _ := cmd.Flags().GetString("from")
	toArg, _ := cmd.Flags().GetString("to")
	days, _ := cmd.Flags().GetInt("days")

	if fromArg != "" {
		if from, err = date.Parse(fromArg); err != nil {
			return from, to, task.ValidateDate("from", fromArg, err)
		}
	}
	if toArg != "" {
		if to, err = date.Parse(toArg); err != nil {
			return from, to, task.ValidateDate("to", toArg, err)
		}
	}
	switch {
	case days < 0:
		return from, to, clierr.Newf(clierr.InvalidInput, "--days must not be negative, got %d", days)
	case days > 0 && toArg != "":
		return from, to, clierr.New(clierr.InvalidInput, "--days and --to are mutually exclusive")
	case days > 0:
		if from.IsZero() {
			from = today
		}
		to = from.AddDays(days - 1)
	}
	if !from.IsZero() && !to.IsZero() && to.Compare(from) < 0 {
		return from, to, clierr.Newf(clierr.InvalidDate, "--to %s is before --from %s", to, from)
	}
	return from, to, nil
}
