// Package tui implements a terminal kanban board over a session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// mode represents the current input state.
type mode int

const (
	modeBoard mode = iota
	modeDrag
	modeSearch
	modeConfirmDelete
)

const (
	keyEsc   = "esc"
	keyEnter = "enter"

	boardChrome   = 2 // blank line + status bar below the column area
	errorChrome   = 1 // extra line when an error or notice is displayed
	clockInterval = time.Second
)

// Board is the top-level bubbletea model.
type Board struct {
	sess    *session.Session
	cfg     *config.Config
	boardID string
	log     *log.Entry

	columns   []column
	activeCol int
	activeRow int
	mode      mode
	filter    board.FilterOptions
	search    textinput.Model
	width     int
	height    int
	err       error
	notice    string
	loaded    bool
	inFlight  int
	now       func() time.Time

	// Drag state. dragCol/dragRow are the hover location in display
	// coordinates, with the dragged card removed from its column.
	gesture *drag.Gesture
	dragCol int
	dragRow int

	deleteID    string
	deleteTitle string
}

// column is one rendered kanban column.
type column struct {
	board.KanbanColumn
	scrollOff int // first visible row index
}

// NewBoard creates a Board that opens boardID (or the first board) on Init.
func NewBoard(sess *session.Session, cfg *config.Config, boardID string, logger *log.Entry) *Board {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search"
	ti.CharLimit = 100

	return &Board{
		sess:    sess,
		cfg:     cfg,
		boardID: boardID,
		log:     logger.WithField("component", "tui"),
		filter: board.FilterOptions{
			ShowCompleted: cfg.View.ShowCompleted,
			AssigneeID:    cfg.View.Assignee,
		},
		search: ti,
		now:    time.Now,
	}
}

// SetNow overrides the clock function used for timer display (for testing).
func (b *Board) SetNow(fn func() time.Time) {
	b.now = fn
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return tea.Batch(b.openCmd(), clockCmd(), b.refreshCmd())
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.clampRow()
		return b, nil
	case loadedMsg:
		b.inFlight--
		b.loaded = true
		if msg.err != nil {
			b.err = msg.err
		} else {
			b.err = nil
		}
		b.rebuild()
		return b, nil
	case opMsg:
		b.inFlight--
		b.handleOp(msg)
		return b, nil
	case ReloadMsg:
		if msg.Config != nil {
			b.cfg = msg.Config
		}
		return b, b.refetchCmd()
	case refreshMsg:
		// Skip automatic refetches while a gesture or request is open so the
		// optimistic view is not replaced underneath the user.
		if b.mode == modeDrag || b.inFlight > 0 {
			return b, b.refreshCmd()
		}
		return b, tea.Batch(b.refetchCmd(), b.refreshCmd())
	case clockMsg:
		return b, clockCmd()
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.mode == modeConfirmDelete {
		return b.viewDeleteConfirm()
	}
	return b.viewBoard()
}

func (b *Board) handleOp(msg opMsg) {
	switch {
	case msg.err != nil:
		b.log.WithError(msg.err).Debug("operation failed")
		b.err = msg.err
		b.notice = ""
	case msg.warn != nil:
		b.err = nil
		b.notice = msg.warn.Error()
	default:
		b.err = nil
		b.notice = msg.done
	}
	b.rebuild()
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		return b, tea.Quit
	}

	switch b.mode {
	case modeBoard:
		return b.handleBoardKey(msg)
	case modeDrag:
		return b.handleDragKey(msg)
	case modeSearch:
		return b.handleSearchKey(msg)
	case modeConfirmDelete:
		return b.handleDeleteKey(msg)
	}
	return b, nil
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return b, tea.Quit
	case keyEsc:
		if b.filter.Search != "" {
			b.filter.Search = ""
			b.search.SetValue("")
			b.rebuild()
		}
		b.notice = ""
	case "h", "left":
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case "l", "right":
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case "j", "down":
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.Tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case "k", "up":
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case " ":
		b.beginDrag()
	case "s":
		return b, b.toggleTimer()
	case "S":
		return b, b.stopTimer()
	case "c":
		return b, b.complete()
	case "d":
		b.handleDeleteStart()
	case "/":
		b.mode = modeSearch
		b.search.SetValue(b.filter.Search)
		b.search.CursorEnd()
		return b, b.search.Focus()
	case "a":
		b.filter.ShowCompleted = !b.filter.ShowCompleted
		b.sess.SetIncludeCompleted(b.filter.ShowCompleted)
		if b.filter.ShowCompleted {
			b.notice = "showing completed tasks"
		} else {
			b.notice = "hiding completed tasks"
		}
		return b, b.refetchCmd()
	case "r":
		return b, b.refetchCmd()
	}
	return b, nil
}

func (b *Board) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		b.filter.Search = b.search.Value()
		b.search.Blur()
		b.mode = modeBoard
		b.rebuild()
		return b, nil
	case keyEsc:
		b.search.Blur()
		b.search.SetValue(b.filter.Search)
		b.mode = modeBoard
		return b, nil
	}
	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	return b, cmd
}

func (b *Board) handleDeleteStart() {
	if !b.requireEdit() {
		return
	}
	if t := b.selectedTask(); t != nil {
		b.deleteID = t.ID
		b.deleteTitle = t.Title
		b.mode = modeConfirmDelete
	}
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		b.mode = modeBoard
		id, title := b.deleteID, b.deleteTitle
		return b, b.run(func(ctx context.Context) opMsg {
			if err := b.sess.Delete(ctx, id); err != nil {
				return opMsg{err: err}
			}
			return opMsg{done: "deleted " + title}
		})
	case "n", "N", keyEsc, "q":
		b.mode = modeBoard
	}
	return b, nil
}

// requireEdit reports whether the open board accepts changes, setting an
// error otherwise.
func (b *Board) requireEdit() bool {
	if !b.sess.Board().CanEdit {
		b.err = clierr.New(clierr.Unauthorized, "board is read-only")
		return false
	}
	return true
}

func (b *Board) toggleTimer() tea.Cmd {
	t := b.selectedTask()
	if t == nil || !b.requireEdit() {
		return nil
	}
	id, title := t.ID, t.Title
	return b.run(func(ctx context.Context) opMsg {
		_, running, err := b.sess.ToggleTimer(ctx, id)
		if err != nil {
			return opMsg{err: err}
		}
		if running {
			return opMsg{done: "timer started on " + title}
		}
		return opMsg{done: "timer stopped"}
	})
}

func (b *Board) stopTimer() tea.Cmd {
	if b.sess.Timer.Running() == nil {
		return nil
	}
	return b.run(func(ctx context.Context) opMsg {
		e, err := b.sess.StopTimer(ctx)
		if err != nil {
			return opMsg{err: err}
		}
		return opMsg{done: fmt.Sprintf("timer stopped (%d min)", e.Minutes())}
	})
}

func (b *Board) complete() tea.Cmd {
	t := b.selectedTask()
	if t == nil || !b.requireEdit() {
		return nil
	}
	id, title := t.ID, t.Title
	return b.run(func(ctx context.Context) opMsg {
		if _, err := b.sess.Complete(ctx, id); err != nil {
			return opMsg{err: err}
		}
		return opMsg{done: "completed " + title}
	})
}

// rebuild recomputes the kanban projection from the store, keeping the
// selection on the same task where possible.
func (b *Board) rebuild() {
	var selected string
	if t := b.selectedTask(); t != nil {
		selected = t.ID
	}
	b.rebuildSelecting(selected)
}

// rebuildSelecting recomputes the projection and selects the task with the
// given id if it is visible.
func (b *Board) rebuildSelecting(selected string) {
	kcs := board.Kanban(b.sess.Store.Columns(), b.sess.Store.Tasks(), b.filter)
	old := b.columns
	b.columns = make([]column, len(kcs))
	for i, kc := range kcs {
		b.columns[i] = column{KanbanColumn: kc}
		if i < len(old) {
			b.columns[i].scrollOff = old[i].scrollOff
		}
	}

	if selected != "" {
		for ci, col := range b.columns {
			for ri, t := range col.Tasks {
				if t.ID == selected {
					b.activeCol, b.activeRow = ci, ri
				}
			}
		}
	}
	if b.activeCol >= len(b.columns) {
		b.activeCol = max(len(b.columns)-1, 0)
	}
	b.clampRow()
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.Tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.Tasks) {
		return &col.Tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.Tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.Tasks) {
		b.activeRow = len(col.Tasks) - 1
	}
	b.ensureVisible()
}

// --- Commands ---

// run executes fn with a request timeout off the UI goroutine.
func (b *Board) run(fn func(ctx context.Context) opMsg) tea.Cmd {
	b.inFlight++
	timeout := b.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (b *Board) openCmd() tea.Cmd {
	b.inFlight++
	id, timeout := b.boardID, b.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return loadedMsg{err: b.sess.Open(ctx, id)}
	}
}

func (b *Board) refetchCmd() tea.Cmd {
	if b.sess.Board().ID == "" {
		return b.openCmd()
	}
	b.inFlight++
	timeout := b.cfg.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := b.sess.Refetch(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			err = clierr.Wrap(clierr.TransientNetwork, err, "refetch timed out")
		}
		return loadedMsg{err: err}
	}
}

func (b *Board) refreshCmd() tea.Cmd {
	d := b.cfg.RefreshInterval()
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return refreshMsg{} })
}

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(time.Time) tea.Msg { return clockMsg{} })
}

// --- Messages ---

// ReloadMsg is sent by the config watcher. A non-nil Config replaces the
// current one before the board is refetched.
type ReloadMsg struct {
	Config *config.Config
}

type loadedMsg struct{ err error }

// opMsg reports a finished mutation.
type opMsg struct {
	done string
	warn *clierr.Error
	err  error
}

type refreshMsg struct{}

type clockMsg struct{}
