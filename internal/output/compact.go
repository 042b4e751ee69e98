package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []task.Task, cols []task.Column) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}
	names := columnNames(cols)
	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t, names[t.ColumnID]))
	}
}

// BoardsCompact renders one line per board.
func BoardsCompact(w io.Writer, boards []task.Board) {
	for _, b := range boards {
		line := b.ID + " " + b.Name
		if !b.CanEdit {
			line += " (read-only)"
		}
		fmt.Fprintln(w, line)
	}
}

// KanbanCompact renders each column as a heading line followed by its tasks.
func KanbanCompact(w io.Writer, cols []board.KanbanColumn) {
	for _, kc := range cols {
		head := kc.Column.Name + ": " + strconv.Itoa(kc.Total)
		if kc.Column.WIPLimit > 0 {
			head += "/" + strconv.Itoa(kc.Column.WIPLimit)
		}
		if kc.OverLimit {
			head += " (over limit)"
		}
		fmt.Fprintln(w, head)
		for _, t := range kc.Tasks {
			fmt.Fprintln(w, "  "+formatTaskLine(t, ""))
		}
	}
}

// CalendarCompact renders the backlog and day buckets one task per line.
func CalendarCompact(w io.Writer, v board.CalendarView) {
	for _, t := range v.Backlog {
		fmt.Fprintln(w, "backlog "+formatTaskLine(t, ""))
	}
	for _, day := range v.Days {
		for _, t := range day.Tasks {
			fmt.Fprintln(w, day.Date.String()+" "+formatTaskLine(t, ""))
		}
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, d session.Detail, cols []task.Column) {
	t := d.Task
	fmt.Fprintln(w, formatTaskLine(t, columnNames(cols)[t.ColumnID]))

	ts := "  created:" + t.CreatedAt.In(location).Format("2006-01-02") +
		" updated:" + t.UpdatedAt.In(location).Format("2006-01-02")
	if t.TotalTimeMinutes > 0 {
		ts += " tracked:" + FormatMinutes(t.TotalTimeMinutes)
	}
	if t.CommentCount > 0 {
		ts += " comments:" + strconv.Itoa(t.CommentCount)
	}
	fmt.Fprintln(w, ts)

	if t.Description != "" {
		for _, line := range strings.Split(t.Description, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks, %s)\n", s.BoardName, s.TotalTasks, FormatMinutes(s.TrackedMinutes))

	for _, cs := range s.Columns {
		line := "  " + cs.Name + ": " + strconv.Itoa(cs.Count)
		if cs.WIPLimit > 0 {
			line += "/" + strconv.Itoa(cs.WIPLimit)
		}
		var annotations []string
		if cs.OverLimit {
			annotations = append(annotations, "over limit")
		}
		if cs.Overdue > 0 {
			annotations = append(annotations, strconv.Itoa(cs.Overdue)+" overdue")
		}
		if len(annotations) > 0 {
			line += " (" + strings.Join(annotations, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}

	if len(s.Priorities) > 0 {
		parts := make([]string, 0, len(s.Priorities))
		for _, pc := range s.Priorities {
			parts = append(parts, string(pc.Priority)+"="+strconv.Itoa(pc.Count))
		}
		fmt.Fprintln(w, "Priority: "+strings.Join(parts, " "))
	}
}

// GroupedCompact renders one line per group.
func GroupedCompact(w io.Writer, gs board.GroupedSummary) {
	for _, g := range gs.Groups {
		fmt.Fprintf(w, "%s: %d (%s)\n", g.Key, g.Total, FormatMinutes(g.Minutes))
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t task.Task, column string) string {
	state := string(t.Priority)
	if column != "" {
		state = column + "/" + state
	}
	line := t.ID + " [" + state + "] " + t.Title

	if t.AssigneeID != "" {
		line += " @" + t.AssigneeID
	}
	if t.DueDate != nil {
		line += " due:" + t.DueDate.In(location).Format("2006-01-02T15:04")
	}
	if t.TotalTimeMinutes > 0 {
		line += " time:" + FormatMinutes(t.TotalTimeMinutes)
	}
	return line
}
