package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/output"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Add or list task comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add ID [TEXT]",
	Short: "Add a comment to a task",
	Long:  `Adds a comment. With no TEXT, or TEXT "-", the comment is read from stdin.`,
	Args:  cobra.RangeArgs(1, 2), //nolint:mnd // id and optional text
	RunE:  runCommentAdd,
}

var commentListCmd = &cobra.Command{
	Use:   "list ID",
	Short: "List the comments of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentList,
}

var activityCmd = &cobra.Command{
	Use:   "activity ID",
	Short: "Show the activity log of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivity,
}

func init() {
	commentCmd.AddCommand(commentAddCmd, commentListCmd)
	rootCmd.AddCommand(commentCmd, activityCmd)
}

func commentText(args []string) (string, error) {
	if len(args) > 1 && args[1] != "-" {
		return args[1], nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	text, err := commentText(args)
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
	c, err := sess.AddComment(cmd.Context(), t.ID, text)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, c)
	}
	output.Messagef(os.Stdout, "Commented on %s: %s", t.ID, t.Title)
	return nil
}

func runCommentList(cmd *cobra.Command, args []string) error {
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
		return output.JSON(os.Stdout, d.Comments)
	}
	output.CommentsTable(os.Stdout, d.Comments)
	return nil
}

func runActivity(cmd *cobra.Command, args []string) error {
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
		return output.JSON(os.Stdout, d.Activity)
	}
	output.ActivityTable(os.Stdout, d.Activity)
	return nil
}
