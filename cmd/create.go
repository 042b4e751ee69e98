package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a task on the board. New tasks land at the end of "To Do" unless
--column names another column.

Title can be provided as a positional argument or via --title flag.
Description can be provided via --description or --body.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().String("column", "", "column ID, name or status (default To Do)")
	createCmd.Flags().String("priority", "", "task priority (low, medium, high, urgent)")
	createCmd.Flags().String("assignee", "", "assignee user ID")
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	createCmd.Flags().String("description", "", "task description (markdown)")
	createCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "body" {
			name = "description"
		}
		return pflag.NormalizedName(name)
	})
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
	if err != nil {
		return err
	}

	sess, cfg, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}

	f := task.Fields{BoardID: sess.Board().ID, Title: title}
	if err := applyCreateFlags(cmd, &f, sess, cfg); err != nil {
		return err
	}

	var warn *clierr.Error
	if col, ok := task.DefaultColumn(sess.Store.Columns(), f.ColumnID); ok {
		f.ColumnID = col.ID
		warn = board.CheckWIPLimit(col, board.CountByColumn(sess.Store.Tasks()), "")
	}

	t, err := sess.Create(cmd.Context(), f)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	printWarning(os.Stderr, warn)
	outputCreateResult(t, sess.Store.Columns())
	return nil
}

func outputCreateResult(t task.Task, cols []task.Column) {
	colName := t.ColumnID
	if c, ok := task.FindColumn(cols, t.ColumnID); ok {
		colName = c.Name
	}
	output.Messagef(os.Stdout, "Created task %s: %s", t.ID, t.Title)
	output.Messagef(os.Stdout, "  Column: %s | Priority: %s", colName, t.Priority)
	if t.AssigneeID != "" {
		output.Messagef(os.Stdout, "  Assignee: %s", t.AssigneeID)
	}
	if t.DueDate != nil {
		output.Messagef(os.Stdout, "  Due: %s", t.DueDate.Format("2006-01-02 15:04"))
	}
}

// resolveCreateTitle returns the task title from either the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	flagTitle, _ := cmd.Flags().GetString("title")
	hasPositional := len(args) > 0
	hasFlag := flagTitle != ""

	switch {
	case hasPositional && hasFlag:
		return "", clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	case hasPositional:
		return args[0], nil
	case hasFlag:
		return flagTitle, nil
	default:
		return "", clierr.New(clierr.InvalidInput,
			"title is required: provide it as an argument or with --title")
	}
}

func applyCreateFlags(cmd *cobra.Command, f *task.Fields, sess *session.Session, cfg *config.Config) error {
	if v, _ := cmd.Flags().GetString("column"); v != "" {
		col, err := resolveColumn(sess.Store.Columns(), v)
		if err != nil {
			return err
		}
		f.ColumnID = col.ID
	}
	if v, _ := cmd.Flags().GetString("priority"); v != "" {
		p := task.Priority(strings.ToLower(v))
		if err := task.ValidatePriority(p); err != nil {
			return err
		}
		f.Priority = p
	}
	if v, _ := cmd.Flags().GetString("assignee"); v != "" {
		f.AssigneeID = v
	}
	if v, _ := cmd.Flags().GetString("due"); v != "" {
		due, err := date.ParseTimestamp(v, cfg.Location())
		if err != nil {
			return task.ValidateDate("due", v, err)
		}
		f.DueDate = &due
	}
	if v, _ := cmd.Flags().GetString("description"); v != "" {
		f.Description = v
	}
	return nil
}
