package cmd

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show board summary",
	Long: `Displays an overview of the board: task counts per column, WIP limits,
overdue tasks, tracked time and the priority mix. Use --group-by to count
tasks by assignee, priority, status or column instead.`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().String("group-by", "", "group by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	boardCmd.Flags().Bool("all", false, "include completed tasks")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	groupBy, _ := cmd.Flags().GetString("group-by")
	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; allowed: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", ")).
			WithDetails(map[string]any{"input": groupBy, "allowed": board.ValidGroupByFields()})
	}
	all, _ := cmd.Flags().GetBool("all")

	sess, _, err := openSession(cmd.Context(), all)
	if err != nil {
		return err
	}
	b := sess.Board()
	tasks := sess.Store.Tasks()

	if groupBy != "" {
		grouped := board.GroupBy(b, tasks, groupBy)
		switch outputFormat() {
		case output.FormatJSON:
			return output.JSON(os.Stdout, grouped)
		case output.FormatCompact:
			output.GroupedCompact(os.Stdout, grouped)
		default:
			output.GroupedTable(os.Stdout, grouped, b.Columns)
		}
		return nil
	}

	summary := board.Summary(b, tasks, time.Now())
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
	default:
		output.OverviewTable(os.Stdout, summary)
	}
	return nil
}
