package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	timestampLayout = "2006-01-02 15:04"
	maxTitle        = 48
	markdownWidth   = 80
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	// Status colors aligned with TUI column-header palette.
	statusStyles = map[string]lipgloss.Style{
		string(task.StatusBacklog):    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		string(task.StatusTodo):       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		string(task.StatusInProgress): lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		string(task.StatusDone):       lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	// Priority colors matching TUI priority palette.
	priorityStyles = map[string]lipgloss.Style{
		string(task.PriorityUrgent): lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		string(task.PriorityHigh):   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		string(task.PriorityMedium): lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		string(task.PriorityLow):    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	assigneeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true)
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)

	markdownStyle = glamour.WithAutoStyle()
)

// DisableColor strips all styling from table output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	boldStyle = lipgloss.NewStyle()
	warnStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	priorityStyles = map[string]lipgloss.Style{}
	assigneeStyle = lipgloss.NewStyle()
	runningStyle = lipgloss.NewStyle()
	markdownStyle = glamour.WithStandardStyle("notty")
}

// BoardsTable renders the visible boards with their columns.
func BoardsTable(w io.Writer, boards []task.Board) {
	if len(boards) == 0 {
		fmt.Fprintln(os.Stderr, "No boards found.")
		return
	}
	idW, nameW := 4, 6
	for _, b := range boards {
		idW = max(idW, len(b.ID)+2)
		nameW = max(nameW, lipgloss.Width(b.Name)+2)
	}
	header := fmt.Sprintf("%-*s %-*s %-6s %s", idW, "ID", nameW, "NAME", "ACCESS", "COLUMNS")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, b := range boards {
		access := "edit"
		if !b.CanEdit {
			access = dimStyle.Render("read")
		}
		names := make([]string, 0, len(b.Columns))
		for _, c := range sortedColumns(b.Columns) {
			names = append(names, c.Name)
		}
		fmt.Fprintf(w, "%-*s %s %s %s\n", idW, b.ID, padRight(b.Name, nameW), padRight(access, 6),
			strings.Join(names, ", "))
	}
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []task.Task, cols []task.Column) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}
	colName := columnNames(cols)

	const pad = 2
	idW, colW, prioW, titleW, assigneeW, dueW := 4, 8, 10, 5, 10, 18
	for _, t := range tasks {
		idW = max(idW, len(t.ID)+pad)
		colW = max(colW, lipgloss.Width(colName[t.ColumnID])+pad)
		prioW = max(prioW, len(t.Priority)+pad)
		titleW = max(titleW, min(lipgloss.Width(t.Title)+pad, maxTitle+pad))
		assigneeW = max(assigneeW, len(assigneeDisplay(t))+pad)
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %s",
		idW, "ID", colW, "COLUMN", prioW, "PRIORITY",
		titleW, "TITLE", assigneeW, "ASSIGNEE", dueW, "DUE", "TIME")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, t := range tasks {
		row := fmt.Sprintf("%-*s %s %s %s %s %s %s",
			idW, t.ID,
			padRight(styledValue(colName[t.ColumnID], nil), colW),
			padRight(styledValue(string(t.Priority), priorityStyles), prioW),
			padRight(truncate(t.Title, maxTitle), titleW),
			padRight(dashIfEmpty(assigneeDisplay(t), assigneeStyle), assigneeW),
			padRight(dueDisplay(t), dueW),
			minutesOrDash(t.TotalTimeMinutes))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// KanbanTable renders the kanban projection column by column.
func KanbanTable(w io.Writer, cols []board.KanbanColumn) {
	for i, kc := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := kc.Column.Name + " (" + strconv.Itoa(kc.Total)
		if kc.Column.WIPLimit > 0 {
			title += "/" + strconv.Itoa(kc.Column.WIPLimit)
		}
		title += ")"
		line := boldStyle.Render(title)
		if kc.OverLimit {
			line += " " + warnStyle.Render("over WIP limit")
		}
		if hidden := kc.Hidden(); hidden > 0 {
			line += " " + dimStyle.Render(strconv.Itoa(hidden)+" hidden")
		}
		fmt.Fprintln(w, line)
		if len(kc.Tasks) == 0 {
			fmt.Fprintln(w, dimStyle.Render("  --"))
			continue
		}
		for _, t := range kc.Tasks {
			fmt.Fprintln(w, "  "+cardLine(t))
		}
	}
}

// CalendarTable renders the backlog side list followed by one section per day.
func CalendarTable(w io.Writer, v board.CalendarView) {
	fmt.Fprintln(w, boldStyle.Render("Backlog ("+strconv.Itoa(len(v.Backlog))+")"))
	if len(v.Backlog) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  --"))
	}
	for _, t := range v.Backlog {
		fmt.Fprintln(w, "  "+cardLine(t))
	}

	today := date.Today(location)
	for _, day := range v.Days {
		fmt.Fprintln(w)
		label := day.Date.Format("Mon 2006-01-02")
		switch {
		case day.Date == today:
			label += " (today)"
		case day.Date.Before(today.Time):
			label = warnStyle.Render(label)
		}
		fmt.Fprintln(w, boldStyle.Render(label))
		for _, t := range day.Tasks {
			fmt.Fprintln(w, "  "+t.DueDate.In(location).Format("15:04")+" "+cardLine(t))
		}
	}
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, boldStyle.Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tasks, %s tracked\n\n", s.TotalTasks, FormatMinutes(s.TrackedMinutes))

	const nameW = 16
	header := fmt.Sprintf("%-*s %6s %8s %8s %8s", nameW, "COLUMN", "COUNT", "WIP", "OVERDUE", "TIME")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, cs := range s.Columns {
		wip := dimStyle.Render("--")
		if cs.WIPLimit > 0 {
			wip = strconv.Itoa(cs.Count) + "/" + strconv.Itoa(cs.WIPLimit)
			if cs.OverLimit {
				wip = warnStyle.Render(wip)
			}
		}
		name := cs.Name
		if st, ok := statusStyles[string(cs.Status)]; ok {
			name = st.Render(name)
		}
		fmt.Fprintf(w, "%s %6d %s %8d %8s\n",
			padRight(name, nameW), cs.Count, padLeft(wip, 8), cs.Overdue, FormatMinutes(cs.Minutes)) //nolint:mnd // column width
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s", nameW, "PRIORITY", "COUNT")))
	for _, pc := range s.Priorities {
		fmt.Fprintf(w, "%s %6d\n", padRight(styledValue(string(pc.Priority), priorityStyles), nameW), pc.Count)
	}
}

// GroupedTable renders a grouped board view with per-group column breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary, cols []task.Column) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks, %s)", g.Key, g.Total, FormatMinutes(g.Minutes))
		fmt.Fprintln(w, boldStyle.Render(title))

		for _, c := range sortedColumns(cols) {
			n := g.Columns[c.Name]
			if n == 0 {
				continue
			}
			const groupColW = 16
			fmt.Fprintf(w, "  %s %d\n", padRight(c.Name, groupColW), n)
		}
	}
}

// TaskDetail renders a single task with its comments, time and activity.
// The description is rendered as markdown.
func TaskDetail(w io.Writer, d session.Detail, cols []task.Column) {
	t := d.Task
	fmt.Fprintln(w, boldStyle.Render(t.Title))
	fmt.Fprintln(w, strings.Repeat("─", min(lipgloss.Width(t.Title), markdownWidth)))

	printField(w, "ID", t.ID)
	printField(w, "Column", columnNames(cols)[t.ColumnID])
	printField(w, "Status", styledValue(string(t.Status), statusStyles))
	printField(w, "Priority", styledValue(string(t.Priority), priorityStyles))
	printField(w, "Assignee", dashIfEmpty(assigneeDisplay(t), assigneeStyle))
	printField(w, "Due", dueDisplay(t))
	printField(w, "Tracked", minutesOrDash(t.TotalTimeMinutes))
	printField(w, "Created", t.CreatedAt.In(location).Format(timestampLayout))
	printField(w, "Updated", t.UpdatedAt.In(location).Format(timestampLayout))

	if t.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderMarkdown(t.Description))
	}

	if len(d.Comments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("COMMENTS ("+strconv.Itoa(len(d.Comments))+")"))
		CommentsTable(w, d.Comments)
	}
	if len(d.TimeEntries) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("TIME"))
		EntriesTable(w, d.TimeEntries, time.Now())
	}
	if len(d.Activity) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("ACTIVITY"))
		ActivityTable(w, d.Activity)
	}
}

// EntriesTable renders time entries. Running entries show their elapsed time.
func EntriesTable(w io.Writer, entries []task.TimeEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No time entries.")
		return
	}
	for _, e := range entries {
		var amount string
		if e.Running() {
			amount = runningStyle.Render("running " + FormatElapsed(elapsedSince(e, now)))
		} else {
			amount = FormatMinutes(e.Minutes())
		}
		fmt.Fprintf(w, "  %s  %s  %s\n",
			e.CreatedAt.In(location).Format(timestampLayout), padRight(amount, 14), dimStyle.Render(e.UserID)) //nolint:mnd // column width
	}
}

// CommentsTable renders comments oldest first.
func CommentsTable(w io.Writer, comments []task.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(os.Stderr, "No comments.")
		return
	}
	for _, c := range comments {
		meta := c.CreatedAt.In(location).Format(timestampLayout) + " " + assigneeStyle.Render(c.AuthorID)
		if c.Edited {
			meta += dimStyle.Render(" (edited)")
		}
		fmt.Fprintln(w, "  "+meta)
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintln(w, "    "+line)
		}
	}
}

// ActivityTable renders the activity log.
func ActivityTable(w io.Writer, entries []task.ActivityEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity.")
		return
	}
	for _, a := range entries {
		fmt.Fprintf(w, "  %s  %s %s\n",
			dimStyle.Render(a.CreatedAt.In(location).Format(timestampLayout)), a.Actor, a.Description)
	}
}

// TimerStatus renders the running timer, or a note that none is running.
func TimerStatus(w io.Writer, e *task.TimeEntry, title string, now time.Time) {
	if e == nil {
		fmt.Fprintln(w, dimStyle.Render("No timer running."))
		return
	}
	label := e.TaskID
	if title != "" {
		label = title
	}
	fmt.Fprintf(w, "%s %s on %s\n", runningStyle.Render("●"), FormatElapsed(elapsedSince(*e, now)), label)
	printField(w, "Entry", e.ID)
	if e.StartedAt != nil {
		printField(w, "Started", e.StartedAt.In(location).Format(timestampLayout))
	}
}

// FeedURL renders the calendar subscription URL.
func FeedURL(w io.Writer, url string, tok task.CalendarToken) {
	fmt.Fprintln(w, url)
	fmt.Fprintln(w, dimStyle.Render("created "+tok.CreatedAt.In(location).Format(timestampLayout)))
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(markdownStyle, glamour.WithWordWrap(markdownWidth))
	if err != nil {
		return md + "\n"
	}
	out, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

// FormatMinutes renders minutes as "Xh Ym", or "Ym" under an hour.
func FormatMinutes(m int) string {
	if m < 60 { //nolint:mnd // minutes per hour
		return strconv.Itoa(m) + "m"
	}
	return strconv.Itoa(m/60) + "h " + strconv.Itoa(m%60) + "m" //nolint:mnd // minutes per hour
}

// FormatElapsed renders a duration as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60) //nolint:mnd // clock arithmetic
}

func elapsedSince(e task.TimeEntry, now time.Time) time.Duration {
	if e.StartedAt == nil {
		return 0
	}
	return now.Sub(*e.StartedAt)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func padLeft(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return strings.Repeat(" ", width-visible) + s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dashIfEmpty(s string, style lipgloss.Style) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return style.Render(s)
}

func minutesOrDash(m int) string {
	if m == 0 {
		return dimStyle.Render("--")
	}
	return FormatMinutes(m)
}

func dueDisplay(t task.Task) string {
	if t.DueDate == nil {
		return dimStyle.Render("--")
	}
	s := t.DueDate.In(location).Format(timestampLayout)
	if board.IsOverdue(t, time.Now()) {
		return warnStyle.Render(s)
	}
	return s
}

// assigneeDisplay returns "@user" if the task is assigned, or "".
func assigneeDisplay(t task.Task) string {
	if t.AssigneeID != "" {
		return "@" + t.AssigneeID
	}
	return ""
}

func cardLine(t task.Task) string {
	line := styledValue(string(t.Priority), priorityStyles) + " " + truncate(t.Title, maxTitle)
	if a := assigneeDisplay(t); a != "" {
		line += " " + assigneeStyle.Render(a)
	}
	if t.TotalTimeMinutes > 0 {
		line += " " + dimStyle.Render(FormatMinutes(t.TotalTimeMinutes))
	}
	if t.CommentCount > 0 {
		line += " " + dimStyle.Render(strconv.Itoa(t.CommentCount)+"c")
	}
	return line + " " + dimStyle.Render(t.ID)
}

func columnNames(cols []task.Column) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[c.ID] = c.Name
	}
	return m
}

func sortedColumns(cols []task.Column) []task.Column {
	out := append([]task.Column(nil), cols...)
	task.SortColumns(out)
	return out
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[s]; ok {
		return st.Render(s)
	}
	return s
}
