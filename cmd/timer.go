package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/output"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Start, stop or inspect the running timer",
	Long: `Each user has at most one running timer. Starting a timer on another task
while one runs fails with a conflict; stop it first.`,
	RunE: runTimerStatus,
}

var timerStartCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Start a timer on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerStart,
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	Args:  cobra.NoArgs,
	RunE:  runTimerStop,
}

var timerToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Start the timer on a task, or stop it if it runs there",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerToggle,
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer",
	Args:  cobra.NoArgs,
	RunE:  runTimerStatus,
}

func init() {
	timerCmd.AddCommand(timerStartCmd, timerStopCmd, timerToggleCmd, timerStatusCmd)
	rootCmd.AddCommand(timerCmd)
}

type timerResult struct {
	Running        bool            `json:"running"`
	Entry          *task.TimeEntry `json:"entry,omitempty"`
	Task           *task.Task      `json:"task,omitempty"`
	ElapsedSeconds *int64          `json:"elapsed_seconds,omitempty"`
}

func runTimerStart(cmd *cobra.Command, args []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	e, err := sess.Timer.Start(cmd.Context(), t.ID)
	if err != nil {
		return err
	}
	return outputTimer(sess, &e, "Started timer on %s: %s")
}

func runTimerStop(cmd *cobra.Command, _ []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	e, err := sess.StopTimer(cmd.Context())
	if err != nil {
		return err
	}
	return outputStopped(sess, e)
}

func runTimerToggle(cmd *cobra.Command, args []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	t, err := resolveTask(sess, args[0])
	if err != nil {
		return err
	}
	e, running, err := sess.ToggleTimer(cmd.Context(), t.ID)
	if err != nil {
		return err
	}
	if running {
		return outputTimer(sess, &e, "Started timer on %s: %s")
	}
	return outputStopped(sess, e)
}

func runTimerStatus(cmd *cobra.Command, _ []string) error {
	sess, _, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	return outputTimer(sess, sess.Timer.Running(), "")
}

// outputTimer prints a running entry. An empty format prints the status view.
func outputTimer(sess *session.Session, e *task.TimeEntry, format string) error {
	now := time.Now()
	var title string
	var tp *task.Task
	if e != nil {
		if t, ok := sess.Store.Get(e.TaskID); ok {
			title, tp = t.Title, &t
		}
	}

	if outputFormat() == output.FormatJSON {
		res := timerResult{Running: e != nil, Entry: e, Task: tp}
		if e != nil {
			secs := int64(sess.Timer.Elapsed() / time.Second)
			res.ElapsedSeconds = &secs
		}
		return output.JSON(os.Stdout, res)
	}
	if format == "" || e == nil {
		output.TimerStatus(os.Stdout, e, title, now)
		return nil
	}
	output.Messagef(os.Stdout, format, e.TaskID, title)
	return nil
}

func outputStopped(sess *session.Session, e task.TimeEntry) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, timerResult{Running: false, Entry: &e})
	}
	title := e.TaskID
	if t, ok := sess.Store.Get(e.TaskID); ok {
		title = t.Title
	}
	output.Messagef(os.Stdout, "Stopped timer on %s after %s", title, output.FormatMinutes(e.Minutes()))
	return nil
}
