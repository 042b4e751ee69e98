package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of an existing task. Only specified fields are changed.
Setting --status moves the task to the end of the column tagged with it.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	addEditFlags(editCmd.Flags())
	rootCmd.AddCommand(editCmd)
}

func addEditFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "new title")
	fs.String("description", "", "new description (replaces the old one)")
	fs.String("priority", "", "new priority")
	fs.String("status", "", "new status (backlog, todo, in_progress, done)")
	fs.String("due", "", "new due date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	fs.Bool("clear-due", false, "clear due date")
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "body" {
			name = "description"
		}
		return pflag.NormalizedName(name)
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := board.ParseIDs(args[0])
	if err != nil {
		return err
	}

	sess, cfg, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	p, err := buildPatch(cmd, cfg.Location())
	if err != nil {
		return err
	}

	if len(ids) == 1 {
		t, err := executeEdit(cmd.Context(), sess, ids[0], p)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated task %s: %s", t.ID, t.Title)
		return nil
	}

	return runBatch(ids, func(id string) error {
		_, err := executeEdit(cmd.Context(), sess, id, p)
		return err
	})
}

func executeEdit(ctx context.Context, sess *session.Session, arg string, p task.Patch) (task.Task, error) {
	t, err := resolveTask(sess, arg)
	if err != nil {
		return task.Task{}, err
	}
	return sess.Update(ctx, t.ID, p)
}

// buildPatch turns the changed flags into a patch. An empty patch is an error.
func buildPatch(cmd *cobra.Command, loc *time.Location) (task.Patch, error) {
	var p task.Patch
	flags := cmd.Flags()

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		p.Title = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		p.Description = &v
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		pr := task.Priority(strings.ToLower(v))
		p.Priority = &pr
	}
	if flags.Changed("status") {
		v, _ := flags.GetString("status")
		st := task.Status(strings.ToLower(v))
		p.Status = &st
	}

	clearDue, _ := flags.GetBool("clear-due")
	if flags.Changed("due") {
		if clearDue {
			return p, clierr.New(clierr.InvalidInput, "--due and --clear-due are mutually exclusive")
		}
		v, _ := flags.GetString("due")
		due, err := date.ParseTimestamp(v, loc)
		if err != nil {
			return p, task.ValidateDate("due", v, err)
		}
		p.DueDate = &due
	}
	p.ClearDue = clearDue

	if p.Empty() {
		return p, clierr.New(clierr.NoChanges, "no changes specified; pass at least one field flag")
	}
	return p, nil
}
