package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// --- Styles ---

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	overLimitHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("226")).
			Padding(0, 1)

	dragCardStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("45")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	timerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityUrgent: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}

	dialogPadY = 1
	dialogPadX = 2

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(dialogPadY, dialogPadX)
)

// --- Layout ---

// chromeHeight returns the number of lines consumed by non-card elements below
// the column area: blank line + status bar (+ message line when one is shown).
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.err != nil || b.notice != "" || b.mode == modeSearch {
		h += errorChrome
	}
	return h
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	// Total rendered width = w * numColumns (JoinHorizontal adds no gaps).
	w := b.width / len(b.columns)
	const maxColWidth = 60
	return min(w, maxColWidth)
}

// visibleCards returns the number of cards that fit in a column, accounting
// for scroll indicator lines ("↑ N more" / "↓ N more").
func (b *Board) visibleCards(tasks []task.Task, scrollOff, width int) int {
	budget := b.height - b.chromeHeight()
	if budget < 1 {
		return 1
	}

	// Always need 1 line for column header.
	avail := budget - 1
	if scrollOff > 0 {
		avail--
	}

	n := b.fitCardsInHeight(tasks, scrollOff, avail, width)
	if scrollOff+n < len(tasks) {
		n = max(b.fitCardsInHeight(tasks, scrollOff, avail-1, width), 1)
	}
	return n
}

// ensureVisible adjusts the active column's scroll offset so the
// selected row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil {
		return
	}
	w := b.columnWidth()

	for range len(col.Tasks) + 1 {
		maxVis := b.visibleCards(col.Tasks, col.scrollOff, w)

		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) fitCardsInHeight(tasks []task.Task, scrollOff, avail, width int) int {
	if len(tasks) == 0 || avail < 1 {
		return 1
	}

	used, count := 0, 0
	for i := scrollOff; i < len(tasks); i++ {
		cardLines := b.cardHeight(tasks[i], width)
		if count > 0 && used+cardLines > avail {
			break
		}
		count++
		used += cardLines
		if used >= avail {
			break
		}
	}
	return max(count, 1)
}

// --- View rendering ---

func (b *Board) viewBoard() string {
	if !b.loaded {
		return "Loading board..."
	}
	if len(b.columns) == 0 {
		return b.renderStatusBar()
	}

	colWidth := b.columnWidth()
	renderedCols := make([]string, len(b.columns))
	for i := range b.columns {
		renderedCols[i] = b.renderColumn(i, colWidth)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// Clamp from the bottom (keeping headers at the top) and pad if needed.
	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, boardView, "", b.renderStatusBar())
}

func (b *Board) renderColumn(colIdx, width int) string {
	col := b.columns[colIdx]
	tasks, dragIdx := b.displayTasks(colIdx)

	headerText := fmt.Sprintf("%s (%d)", col.Column.Name, col.Total)
	if col.Column.WIPLimit > 0 {
		headerText = fmt.Sprintf("%s (%d/%d)", col.Column.Name, col.Total, col.Column.WIPLimit)
	}
	if hidden := col.Hidden(); hidden > 0 {
		headerText += fmt.Sprintf(" +%d", hidden)
	}
	const headerPad = 2
	headerText = truncate(headerText, width-headerPad)

	style := columnHeaderStyle
	switch {
	case colIdx == b.activeCol && b.mode != modeDrag, b.mode == modeDrag && colIdx == b.dragCol:
		style = activeColumnHeaderStyle
	case col.OverLimit:
		style = overLimitHeaderStyle
	}
	parts := []string{style.Width(width).Render(headerText)}

	scrollOff := col.scrollOff
	if dragIdx >= 0 {
		// Keep the dragged card on screen.
		scrollOff = min(scrollOff, dragIdx)
	}
	maxVis := b.visibleCards(tasks, scrollOff, width)
	if dragIdx >= scrollOff+maxVis {
		scrollOff = dragIdx - maxVis + 1
	}
	start := min(scrollOff, len(tasks))
	end := min(start+maxVis, len(tasks))

	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↑ %d more", start), width)))
	}
	if len(tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	}
	for rowIdx := start; rowIdx < end; rowIdx++ {
		var st lipgloss.Style
		switch {
		case rowIdx == dragIdx:
			st = dragCardStyle
		case b.mode != modeDrag && colIdx == b.activeCol && rowIdx == b.activeRow:
			st = activeCardStyle
		default:
			st = cardStyle
		}
		parts = append(parts, b.renderCard(tasks[rowIdx], st, width))
	}
	if end < len(tasks) {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↓ %d more", len(tasks)-end), width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t task.Task, style lipgloss.Style, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")
	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	lines := wrapTitle(t.Title, cardWidth, b.cfg.TitleLines())

	var meta []string
	if st, ok := priorityStyles[t.Priority]; ok {
		meta = append(meta, st.Render(string(t.Priority)))
	}
	if t.DueDate != nil {
		label := "due " + dueLabel(*t.DueDate, b.now(), b.cfg.Location())
		if board.IsOverdue(t, b.now()) {
			meta = append(meta, overdueStyle.Render(label))
		} else {
			meta = append(meta, dimStyle.Render(label))
		}
	}
	if t.AssigneeID != "" {
		meta = append(meta, dimStyle.Render("@"+t.AssigneeID))
	}
	if t.TotalTimeMinutes > 0 {
		meta = append(meta, dimStyle.Render(formatMinutes(t.TotalTimeMinutes)))
	}
	if t.CommentCount > 0 {
		meta = append(meta, dimStyle.Render(strconv.Itoa(t.CommentCount)+"c"))
	}
	if len(meta) > 0 {
		lines = append(lines, truncate(strings.Join(meta, " "), cardWidth))
	}

	if r := b.sess.Timer.Running(); r != nil && r.TaskID == t.ID {
		lines = append(lines, timerStyle.Render("● "+formatClock(b.elapsed())))
	}
	return lines
}

func (b *Board) elapsed() time.Duration {
	r := b.sess.Timer.Running()
	if r == nil || r.StartedAt == nil {
		return 0
	}
	return max(b.now().Sub(*r.StartedAt), 0)
}

func (b *Board) renderStatusBar() string {
	bd := b.sess.Board()
	name := bd.Name
	if !bd.CanEdit && bd.ID != "" {
		name += " (read-only)"
	}
	total := 0
	for _, c := range b.columns {
		total += c.Total
	}

	var hint string
	switch b.mode {
	case modeDrag:
		hint = "←→↑↓:move enter:drop esc:cancel"
	case modeSearch:
		hint = "enter:apply esc:cancel"
	default:
		hint = "space:move s:timer c:done d:del /:search a:completed r:refresh q:quit"
	}
	status := fmt.Sprintf(" %s | %d tasks", name, total)
	if b.filter.Search != "" {
		status += " | /" + b.filter.Search
	}
	if r := b.sess.Timer.Running(); r != nil {
		status += " | ● " + formatClock(b.elapsed())
	}
	if b.inFlight > 0 {
		status += " | syncing"
	}
	status = truncate(status+" | "+hint, b.width)

	var top string
	switch {
	case b.mode == modeSearch:
		top = b.search.View()
	case b.err != nil:
		top = errorStyle.Render(truncate("Error: "+b.err.Error(), b.width))
	case b.notice != "":
		top = noticeStyle.Render(truncate(b.notice, b.width))
	}
	if top != "" {
		return top + "\n" + statusBarStyle.Render(status)
	}
	return statusBarStyle.Render(status)
}

func (b *Board) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		"  " + b.deleteTitle + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

// wrapTitle splits a title across maxLines lines, word-wrapping at word
// boundaries. Each line is at most maxWidth characters.
func wrapTitle(title string, maxWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	if lipgloss.Width(title) <= maxWidth || maxLines == 1 {
		return []string{truncate(title, maxWidth)}
	}

	words := strings.Fields(title)
	lines := make([]string, 0, maxLines)
	var current strings.Builder

	for i, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= maxWidth {
			current.WriteByte(' ')
			current.WriteString(word)
		} else {
			lines = append(lines, truncate(current.String(), maxWidth))
			current.Reset()
			current.WriteString(word)
			if len(lines) == maxLines-1 {
				// Last line: append all remaining words.
				for _, w := range words[i+1:] {
					current.WriteByte(' ')
					current.WriteString(w)
				}
				break
			}
		}
	}
	if current.Len() > 0 {
		lines = append(lines, truncate(current.String(), maxWidth))
	}
	return lines
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	// Slice by runes to avoid breaking multi-byte UTF-8 characters.
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}

// dueLabel formats a due time relative to now: "today 15:00", "in 3d", "2d ago".
func dueLabel(due, now time.Time, loc *time.Location) string {
	const day = 24 * time.Hour
	if date.Of(due, loc) == date.Of(now, loc) {
		return "today " + due.In(loc).Format("15:04")
	}
	d := due.Sub(now)
	switch {
	case d > 0:
		return "in " + humanDuration(d+day-1)
	default:
		return humanDuration(-d) + " ago"
	}
}

// humanDuration formats a duration as a compact human-readable string.
// Examples: "<1m", "5m", "2h", "3d", "2w", "3mo", "1y".
func humanDuration(d time.Duration) string {
	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m"
	case d < day:
		return strconv.Itoa(int(d.Hours())) + "h"
	case d < week:
		return strconv.Itoa(int(d/day)) + "d"
	case d < month:
		return strconv.Itoa(int(d/week)) + "w"
	case d < year:
		return strconv.Itoa(int(d/month)) + "mo"
	default:
		return strconv.Itoa(int(d/year)) + "y"
	}
}

func formatMinutes(m int) string {
	if m < 60 { //nolint:mnd // minutes per hour
		return strconv.Itoa(m) + "m"
	}
	return strconv.Itoa(m/60) + "h" + strconv.Itoa(m%60) + "m" //nolint:mnd // minutes per hour
}

func formatClock(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60) //nolint:mnd // clock arithmetic
}
