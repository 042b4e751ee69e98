package tui

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/api"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/db"
	"github.com/twiced-technology-gmbh/taskboard/internal/server"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

type env struct {
	url string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	logger := log.New()
	logger.SetOutput(io.Discard)
	srv := httptest.NewServer(server.New(store, server.NewAuth(""), logger).Handler())
	t.Cleanup(srv.Close)
	return &env{url: srv.URL}
}

// client returns a dev-mode client where the bearer value is the user id.
func (e *env) client(t *testing.T, user string) *api.Client {
	t.Helper()
	c, err := api.New(e.url, api.WithToken(user))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (e *env) defaultBoard(t *testing.T, c *api.Client) task.Board {
	t.Helper()
	boards, err := c.GetBoards(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return boards[0]
}

func (e *env) createTasks(t *testing.T, c *api.Client, b task.Board, titles ...string) []task.Task {
	t.Helper()
	col, ok := task.DefaultColumn(b.Columns, "")
	if !ok {
		t.Fatal("no default column")
	}
	out := make([]task.Task, 0, len(titles))
	for _, title := range titles {
		tk, err := c.CreateTask(context.Background(), task.Fields{BoardID: b.ID, ColumnID: col.ID, Title: title})
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, tk)
	}
	return out
}

func (e *env) open(t *testing.T, c *api.Client, boardID string) *Board {
	t.Helper()
	discard := log.New()
	discard.SetOutput(io.Discard)
	entry := log.NewEntry(discard)

	sess := session.New(c, session.Options{Logger: entry})
	cfg := config.NewDefault(e.url)
	cfg.TUI.RefreshInterval = "0s"
	b := NewBoard(sess, cfg, boardID, entry)
	exec(t, b, b.openCmd())
	b.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	if b.err != nil {
		t.Fatalf("open: %v", b.err)
	}
	return b
}

// exec runs cmd synchronously and feeds its message back into the model.
func exec(t *testing.T, b *Board, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	b.Update(cmd())
}

func press(b *Board, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = b.Update(msg)
	}
	return cmd
}

func columnTitles(b *Board, name string) []string {
	for _, c := range b.columns {
		if c.Column.Name == name {
			var out []string
			for _, t := range c.Tasks {
				out = append(out, t.Title)
			}
			return out
		}
	}
	return nil
}

func serverTask(t *testing.T, c *api.Client, boardID, id string) task.Task {
	t.Helper()
	tasks, err := c.GetTasks(context.Background(), task.Query{BoardID: boardID, IncludeCompleted: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, tk := range tasks {
		if tk.ID == id {
			return tk
		}
	}
	t.Fatalf("task %s not on server", id)
	return task.Task{}
}

func TestDragAcrossColumnsIsOptimisticThenConfirmed(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	tasks := e.createTasks(t, c, bd, "Invoice", "Hire")
	b := e.open(t, c, bd.ID)

	// Backlog, To Do, In Progress, Done.
	press(b, "l")
	if sel := b.selectedTask(); sel == nil || sel.Title != "Invoice" {
		t.Fatalf("selected = %+v, want Invoice", sel)
	}
	press(b, " ", "l")
	if b.mode != modeDrag {
		t.Fatalf("mode = %v, want drag", b.mode)
	}
	cmd := press(b, "enter")

	local, _ := b.sess.Store.Get(tasks[0].ID)
	if local.Status != task.StatusInProgress {
		t.Errorf("optimistic status = %s, want in_progress", local.Status)
	}
	if got := columnTitles(b, "In Progress"); len(got) != 1 || got[0] != "Invoice" {
		t.Errorf("In Progress = %v before commit", got)
	}

	exec(t, b, cmd)
	if b.err != nil {
		t.Fatalf("commit: %v", b.err)
	}
	if got := serverTask(t, c, bd.ID, tasks[0].ID); got.Status != task.StatusInProgress {
		t.Errorf("server status = %s", got.Status)
	}
	if sel := b.selectedTask(); sel == nil || sel.ID != tasks[0].ID {
		t.Errorf("selection should follow the moved card, got %+v", sel)
	}
}

func TestDragReordersWithinColumn(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	e.createTasks(t, c, bd, "A", "B", "C")
	b := e.open(t, c, bd.ID)

	press(b, "l", " ", "j", "j", "j")
	if b.dragRow != 2 {
		t.Fatalf("dragRow = %d, want clamp at 2", b.dragRow)
	}
	exec(t, b, press(b, "enter"))

	if got := strings.Join(columnTitles(b, "To Do"), ","); got != "B,C,A" {
		t.Errorf("To Do = %s, want B,C,A", got)
	}
}

func TestDropInPlaceWithHiddenNeighbourIsNoop(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	tasks := e.createTasks(t, c, bd, "apple", "berry", "kiwi", "cherry")
	b := e.open(t, c, bd.ID)

	press(b, "/", "e", "r", "enter")
	press(b, "l")
	if sel := b.selectedTask(); sel == nil || sel.Title != "berry" {
		t.Fatalf("selected = %+v, want berry", sel)
	}
	if cmd := press(b, " ", "enter"); cmd != nil {
		t.Fatal("dropping a card where it was picked up must not send a move")
	}

	press(b, "esc")
	if got := strings.Join(columnTitles(b, "To Do"), ","); got != "apple,berry,kiwi,cherry" {
		t.Errorf("To Do = %s, want apple,berry,kiwi,cherry", got)
	}
	if got := serverTask(t, c, bd.ID, tasks[1].ID); got.Position != tasks[1].Position {
		t.Errorf("berry position changed on the server: %v -> %v", tasks[1].Position, got.Position)
	}
}

func TestEscapeCancelsDrag(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	e.createTasks(t, c, bd, "A", "B")
	b := e.open(t, c, bd.ID)

	press(b, "l", " ", "l", "l")
	if cmd := press(b, "esc"); cmd != nil {
		t.Error("cancel should not send anything")
	}
	if b.mode != modeBoard || b.gesture != nil {
		t.Errorf("mode = %v, gesture = %v", b.mode, b.gesture)
	}
	if got := strings.Join(columnTitles(b, "To Do"), ","); got != "A,B" {
		t.Errorf("To Do = %s, want A,B", got)
	}
}

func TestRejectedMoveRollsBack(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	tasks := e.createTasks(t, c, bd, "Gone")
	b := e.open(t, c, bd.ID)

	press(b, "l", " ", "l")
	cmd := press(b, "enter")
	// Someone else deletes the task before the move arrives.
	if err := c.DeleteTask(context.Background(), tasks[0].ID); err != nil {
		t.Fatal(err)
	}
	exec(t, b, cmd)

	if clierr.CodeOf(b.err) != clierr.TaskNotFound {
		t.Errorf("err = %v, want TASK_NOT_FOUND", b.err)
	}
	if b.sess.Store.Len() != 0 {
		t.Errorf("store should reflect the refetch, has %d tasks", b.sess.Store.Len())
	}
}

func TestReadOnlyBoardRefusesDrag(t *testing.T) {
	e := newEnv(t)
	owner := e.client(t, "owner")
	bd := e.defaultBoard(t, owner)
	e.createTasks(t, owner, bd, "Theirs")
	if err := owner.ShareBoard(context.Background(), bd.ID, "viewer", false); err != nil {
		t.Fatal(err)
	}

	b := e.open(t, e.client(t, "viewer"), bd.ID)
	press(b, "l", " ")
	if b.mode != modeBoard {
		t.Errorf("mode = %v, want board", b.mode)
	}
	if clierr.CodeOf(b.err) != clierr.Unauthorized {
		t.Errorf("err = %v, want read-only error", b.err)
	}
	if !strings.Contains(b.View(), "(read-only)") {
		t.Error("status bar should mark the board read-only")
	}
}

func TestSearchFiltersCards(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	e.createTasks(t, c, bd, "Send invoice", "Hire designer")
	b := e.open(t, c, bd.ID)

	press(b, "/", "i", "n", "v", "enter")
	if b.filter.Search != "inv" {
		t.Fatalf("search = %q", b.filter.Search)
	}
	if got := columnTitles(b, "To Do"); len(got) != 1 || got[0] != "Send invoice" {
		t.Errorf("To Do = %v", got)
	}
	press(b, "esc")
	if got := columnTitles(b, "To Do"); len(got) != 2 {
		t.Errorf("esc should clear the search, To Do = %v", got)
	}
}

func TestTimerAndComplete(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "u1")
	bd := e.defaultBoard(t, c)
	tasks := e.createTasks(t, c, bd, "Track me")
	b := e.open(t, c, bd.ID)

	press(b, "l")
	exec(t, b, press(b, "s"))
	if b.sess.Timer.Running() == nil {
		t.Fatalf("timer not running (err %v)", b.err)
	}
	if !strings.Contains(b.View(), "●") {
		t.Error("running timer should be shown")
	}

	exec(t, b, press(b, "c"))
	if got := serverTask(t, c, bd.ID, tasks[0].ID); got.Status != task.StatusDone {
		t.Errorf("status = %s, want done", got.Status)
	}
	if got := columnTitles(b, "Done"); len(got) != 0 {
		t.Errorf("completed task should be hidden, Done = %v", got)
	}

	exec(t, b, press(b, "a"))
	if got := columnTitles(b, "Done"); len(got) != 1 {
		t.Errorf("show completed: Done = %v", got)
	}
}

func TestFullIndexSkipsHiddenSiblings(t *testing.T) {
	siblings := []string{"a", "h1", "b", "h2"}
	visible := []task.Task{{ID: "a"}, {ID: "b"}}
	tests := []struct {
		row, want int
	}{
		{0, 0},
		{1, 2},
		{2, 3},
	}
	for _, tt := range tests {
		if got := fullIndex(siblings, visible, tt.row); got != tt.want {
			t.Errorf("row %d: got %d, want %d", tt.row, got, tt.want)
		}
	}
	if got := fullIndex(siblings, nil, 0); got != 4 {
		t.Errorf("empty view: got %d, want 4", got)
	}
}

func TestWrapTitle(t *testing.T) {
	got := wrapTitle("one two three four", 9, 2)
	if len(got) != 2 || got[0] != "one two" {
		t.Errorf("wrapTitle = %q", got)
	}
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
}
