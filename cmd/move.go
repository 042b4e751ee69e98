package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var moveCmd = &cobra.Command{
	Use:   "move ID [COLUMN]",
	Short: "Move a task to a column",
	Long: `Moves a task to COLUMN (ID, name or status tag), at the end unless --index
or --top is given. Use --next/--prev to move along the column order instead.
The index counts the column's cards without the moved one.

Moving into a column over its WIP limit prints a warning; the move still happens.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runMove,
}

func init() {
	moveCmd.Flags().Int("index", -1, "position within the column (0 = top)")
	moveCmd.Flags().Bool("top", false, "move to the top of the column")
	moveCmd.Flags().Bool("next", false, "move to the next column")
	moveCmd.Flags().Bool("prev", false, "move to the previous column")
	rootCmd.AddCommand(moveCmd)
}

// moveResult wraps a task with a changed flag for JSON output.
type moveResult struct {
	task.Task
	Changed bool                  `json:"changed"`
	Warning *output.ErrorResponse `json:"warning,omitempty"`
}

func runMove(cmd *cobra.Command, args []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	col, err := moveTarget(cmd, sess, t, args[1:])
	if err != nil {
		return err
	}
	index, err := moveIndex(cmd, sess, t, col)
	if err != nil {
		return err
	}

	fromCol, fromIdx, _ := sess.Store.IndexOf(t.ID)
	if fromCol == col.ID && fromIdx == index {
		return outputMoveResult(t, false, nil, col)
	}

	warn, err := sess.Move(cmd.Context(), t.ID, col.ID, index)
	if err != nil {
		return err
	}
	moved, ok := sess.Store.Get(t.ID)
	if !ok {
		moved = t
	}
	return outputMoveResult(moved, true, warn, col)
}

// moveTarget resolves the target column from the argument or --next/--prev.
func moveTarget(cmd *cobra.Command, sess *session.Session, t task.Task, args []string) (task.Column, error) {
	next, _ := cmd.Flags().GetBool("next")
	prev, _ := cmd.Flags().GetBool("prev")
	cols := append([]task.Column(nil), sess.Store.Columns()...)
	task.SortColumns(cols)

	switch {
	case next && prev:
		return task.Column{}, clierr.New(clierr.InvalidInput, "--next and --prev are mutually exclusive")
	case (next || prev) && len(args) > 0:
		return task.Column{}, clierr.New(clierr.InvalidInput, "COLUMN and --next/--prev are mutually exclusive")
	case len(args) > 0:
		return resolveColumn(cols, args[0])
	case !next && !prev:
		return task.Column{}, clierr.New(clierr.InvalidInput, "COLUMN is required unless --next or --prev is given")
	}

	cur := -1
	for i, c := range cols {
		if c.ID == t.ColumnID {
			cur = i
		}
	}
	step := 1
	if prev {
		step = -1
	}
	target := cur + step
	if cur < 0 || target < 0 || target >= len(cols) {
		edge := "last"
		if prev {
			edge = "first"
		}
		return task.Column{}, clierr.Newf(clierr.InvalidInput, "task %s is already in the %s column", t.ID, edge)
	}
	return cols[target], nil
}

// moveIndex returns the drop index in col, counted without t.
func moveIndex(cmd *cobra.Command, sess *session.Session, t task.Task, col task.Column) (int, error) {
	top, _ := cmd.Flags().GetBool("top")
	index, _ := cmd.Flags().GetInt("index")

	end := 0
	for _, s := range sess.Store.GetByColumn(col.ID) {
		if s.ID != t.ID {
			end++
		}
	}
	switch {
	case top && cmd.Flags().Changed("index"):
		return 0, clierr.New(clierr.InvalidInput, "--top and --index are mutually exclusive")
	case top:
		return 0, nil
	case !cmd.Flags().Changed("index"):
		return end, nil
	case index < 0:
		return 0, clierr.Newf(clierr.InvalidInput, "--index must not be negative, got %d", index)
	default:
		return min(index, end), nil
	}
}

func outputMoveResult(t task.Task, changed bool, warn *clierr.Error, col task.Column) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, moveResult{Task: t, Changed: changed, Warning: output.WarningOf(warn)})
	}
	printWarning(os.Stderr, warn)
	if !changed {
		output.Messagef(os.Stdout, "Task %s is already there", t.ID)
		return nil
	}
	output.Messagef(os.Stdout, "Moved task %s to %s", t.ID, col.Name)
	return nil
}
