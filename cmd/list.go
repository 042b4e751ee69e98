package cmd

import (
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists the tasks of the board with optional filtering and sorting.
Completed tasks are hidden unless --all is given or view.show_completed is set.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var kanbanCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Show tasks grouped by column",
	Long:  `Prints the kanban view: every column with its filtered cards, WIP state and hidden count.`,
	Args:  cobra.NoArgs,
	RunE:  runKanban,
}

func init() {
	addFilterFlags(listCmd)
	listCmd.Flags().String("column", "", "only tasks in this column (ID, name or status)")
	listCmd.Flags().String("sort", "position", "sort by field ("+strings.Join(board.ValidSortFields(), ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "maximum number of tasks to show")
	rootCmd.AddCommand(listCmd)

	addFilterFlags(kanbanCmd)
	rootCmd.AddCommand(kanbanCmd)
}

// addFilterFlags registers the flags read by filterOptions.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("assignee", "a", "", `filter by assignee ("-" for unassigned)`)
	cmd.Flags().StringSliceP("priority", "p", nil, "filter by priority (comma-separated)")
	cmd.Flags().StringP("search", "s", "", "case-insensitive search in title and description")
	cmd.Flags().Bool("all", false, "include completed tasks")
}

// filterOptions builds the filter from the flags, falling back to the view
// defaults of the config.
func filterOptions(cmd *cobra.Command, cfg *config.Config) (board.FilterOptions, error) {
	assignee, _ := cmd.Flags().GetString("assignee")
	prios, _ := cmd.Flags().GetStringSlice("priority")
	search, _ := cmd.Flags().GetString("search")
	all, _ := cmd.Flags().GetBool("all")

	opts := board.FilterOptions{
		Search:        search,
		AssigneeID:    firstNonEmpty(assignee, cfg.View.Assignee),
		ShowCompleted: all || cfg.View.ShowCompleted,
	}
	for _, p := range prios {
		pr := task.Priority(strings.ToLower(strings.TrimSpace(p)))
		if err := task.ValidatePriority(pr); err != nil {
			return opts, err
		}
		opts.Priorities = append(opts.Priorities, pr)
	}
	return opts, nil
}

// openFiltered opens a session that loads completed tasks only when the
// filter will show them.
func openFiltered(cmd *cobra.Command) (*session.Session, *config.Config, board.FilterOptions, error) {
	var opts board.FilterOptions
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, opts, err
	}
	if opts, err = filterOptions(cmd, cfg); err != nil {
		return nil, nil, opts, err
	}
	sess, err := newSession(cfg, opts.ShowCompleted)
	if err != nil {
		return nil, nil, opts, err
	}
	if err := sess.Open(cmd.Context(), cfg.Board); err != nil {
		return nil, nil, opts, err
	}
	return sess, cfg, opts, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	sortField, _ := cmd.Flags().GetString("sort")
	if !slices.Contains(board.ValidSortFields(), sortField) {
		return clierr.Newf(clierr.InvalidInput, "invalid sort field %q; allowed: %s",
			sortField, strings.Join(board.ValidSortFields(), ", "))
	}
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	colArg, _ := cmd.Flags().GetString("column")

	sess, _, opts, err := openFiltered(cmd)
	if err != nil {
		return err
	}
	cols := sess.Store.Columns()

	tasks := board.Filter(sess.Store.Tasks(), opts)
	if colArg != "" {
		col, err := resolveColumn(cols, colArg)
		if err != nil {
			return err
		}
		tasks = slices.DeleteFunc(tasks, func(t task.Task) bool { return t.ColumnID != col.ID })
	}
	board.Sort(tasks, sortField, reverse)
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, tasks)
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, tasks, cols)
	default:
		output.TaskTable(os.Stdout, tasks, cols)
	}
	return nil
}

func runKanban(cmd *cobra.Command, _ []string) error {
	sess, _, opts, err := openFiltered(cmd)
	if err != nil {
		return err
	}
	view := board.Kanban(sess.Store.Columns(), sess.Store.Tasks(), opts)

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, view)
	case output.FormatCompact:
		output.KanbanCompact(os.Stdout, view)
	default:
		output.KanbanTable(os.Stdout, view)
	}
	return nil
}
