package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/ordering"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupBoard provisions the default board for user u1.
func setupBoard(t *testing.T, db *DB) task.Board {
	t.Helper()
	ctx := context.Background()
	if err := db.EnsureDefaultBoard(ctx, "u1"); err != nil {
		t.Fatalf("ensure board: %v", err)
	}
	boards, err := db.ListBoards(ctx, "u1")
	if err != nil || len(boards) != 1 {
		t.Fatalf("boards = %+v, err = %v", boards, err)
	}
	return boards[0]
}

func column(t *testing.T, b task.Board, status task.Status) task.Column {
	t.Helper()
	c, ok := task.ColumnByStatus(b.Columns, status)
	if !ok {
		t.Fatalf("no %s column", status)
	}
	return c
}

func create(t *testing.T, db *DB, b task.Board, col, title string) task.Task {
	t.Helper()
	tk, err := db.CreateTask(context.Background(), "u1", task.Fields{BoardID: b.ID, ColumnID: col, Title: title})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return tk
}

func titlesIn(t *testing.T, db *DB, b task.Board, colID string) []string {
	t.Helper()
	tasks, err := db.ListTasks(context.Background(), b.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, tk := range tasks {
		if tk.ColumnID == colID {
			out = append(out, tk.Title)
		}
	}
	return out
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("failed to get default path: %v", err)
	}
	if !filepath.IsAbs(path) || !strings.HasSuffix(path, filepath.Join("taskboard", "taskboard.db")) {
		t.Errorf("unexpected default path %q", path)
	}
}

func TestEnsureDefaultBoardIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	if err := db.EnsureDefaultBoard(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	boards, _ := db.ListBoards(context.Background(), "u1")
	if len(boards) != 1 {
		t.Fatalf("expected one board, got %d", len(boards))
	}
	if !b.CanEdit || len(b.Columns) != len(DefaultColumns) {
		t.Fatalf("board = %+v", b)
	}
	for i, c := range b.Columns {
		if c.Position != i || c.Name != DefaultColumns[i].Name {
			t.Fatalf("column %d = %+v", i, c)
		}
	}
}

func TestCreateTaskDefaultsAndAppends(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	todo := column(t, b, task.StatusTodo)

	first := create(t, db, b, "", "First")
	second := create(t, db, b, "", "Second")
	if first.ColumnID != todo.ID || first.Status != task.StatusTodo || first.Priority != task.PriorityMedium {
		t.Fatalf("first = %+v", first)
	}
	if second.Position <= first.Position {
		t.Fatalf("second should append: %v <= %v", second.Position, first.Position)
	}

	if _, err := db.CreateTask(context.Background(), "u1", task.Fields{BoardID: b.ID, ColumnID: "nope", Title: "x"}); !clierr.IsNotFound(err) {
		t.Fatalf("unknown column should be not found, got %v", err)
	}
	if _, err := db.CreateTask(context.Background(), "u1", task.Fields{BoardID: b.ID, Title: ""}); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Fatalf("empty title should be invalid, got %v", err)
	}
}

func TestMoveTaskOrdersAndSyncsStatus(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	todo := column(t, b, task.StatusTodo)
	doing := column(t, b, task.StatusInProgress)

	a := create(t, db, b, todo.ID, "A")
	create(t, db, b, todo.ID, "B")
	c := create(t, db, b, todo.ID, "C")

	if _, err := db.MoveTask(ctx, "u1", c.ID, task.Placement{ColumnID: todo.ID, Index: 0}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := strings.Join(titlesIn(t, db, b, todo.ID), ","); got != "C,A,B" {
		t.Fatalf("todo = %s, want C,A,B", got)
	}

	moved, err := db.MoveTask(ctx, "u1", a.ID, task.Placement{ColumnID: doing.ID, Index: 5})
	if err != nil {
		t.Fatal(err)
	}
	if moved.Status != task.StatusInProgress || moved.ColumnID != doing.ID {
		t.Fatalf("moved = %+v", moved)
	}
	if got := strings.Join(titlesIn(t, db, b, todo.ID), ","); got != "C,B" {
		t.Fatalf("todo after cross-column move = %s", got)
	}

	if _, err := db.MoveTask(ctx, "u1", "ghost", task.Placement{ColumnID: todo.ID, Index: 0}); clierr.CodeOf(err) != clierr.TaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND, got %v", err)
	}
	if _, err := db.MoveTask(ctx, "u1", a.ID, task.Placement{ColumnID: "ghost", Index: 0}); !clierr.IsNotFound(err) {
		t.Fatalf("expected column not found, got %v", err)
	}
}

func TestMoveIndexSkipsDoneTasksUnlessIncluded(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	todo := column(t, b, task.StatusTodo)
	done := column(t, b, task.StatusDone)

	a := create(t, db, b, todo.ID, "A")
	bt := create(t, db, b, todo.ID, "B")
	c := create(t, db, b, todo.ID, "C")
	d := create(t, db, b, todo.ID, "D")
	e := create(t, db, b, todo.ID, "E")
	for _, id := range []string{a.ID, bt.ID} {
		if _, err := db.CompleteTask(ctx, "u1", id); err != nil {
			t.Fatal(err)
		}
	}

	// A list without done tasks shows Done as empty, so its end is index 0.
	if _, err := db.MoveTask(ctx, "u1", c.ID, task.Placement{ColumnID: done.ID, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(titlesIn(t, db, b, done.ID), ","); got != "A,B,C" {
		t.Fatalf("done = %s, want A,B,C", got)
	}

	// C is done now too, so index 0 still counts no visible siblings.
	if _, err := db.MoveTask(ctx, "u1", d.ID, task.Placement{ColumnID: done.ID, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(titlesIn(t, db, b, done.ID), ","); got != "A,B,C,D" {
		t.Fatalf("done = %s, want A,B,C,D", got)
	}

	if _, err := db.MoveTask(ctx, "u1", e.ID, task.Placement{ColumnID: done.ID, Index: 0, IncludeCompleted: true}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(titlesIn(t, db, b, done.ID), ","); got != "E,A,B,C,D" {
		t.Fatalf("done = %s, want E,A,B,C,D", got)
	}
}

func TestCountedIndex(t *testing.T) {
	siblings := []ordering.Sibling{{ID: "a"}, {ID: "x"}, {ID: "b"}, {ID: "y"}}
	hidden := map[string]bool{"x": true, "y": true}
	tests := []struct{ index, want int }{
		{-1, 0}, {0, 0}, {1, 2}, {2, 4}, {7, 4},
	}
	for _, tt := range tests {
		if got := countedIndex(siblings, hidden, tt.index); got != tt.want {
			t.Errorf("countedIndex(%d) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestMoveIntoCrowdedMiddleShiftsSiblings(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	todo := column(t, b, task.StatusTodo)

	var ids []string
	for _, title := range []string{"A", "B", "C", "D"} {
		ids = append(ids, create(t, db, b, todo.ID, title).ID)
	}
	// Repeated inserts at index 1 exhaust the integer gaps.
	for i := 0; i < 3; i++ {
		if _, err := db.MoveTask(ctx, "u1", ids[3], task.Placement{ColumnID: todo.ID, Index: 1}); err != nil {
			t.Fatal(err)
		}
		if _, err := db.MoveTask(ctx, "u1", ids[2], task.Placement{ColumnID: todo.ID, Index: 1}); err != nil {
			t.Fatal(err)
		}
	}
	tasks, _ := db.ListTasks(ctx, b.ID, false)
	for i := 1; i < len(tasks); i++ {
		if tasks[i].Position <= tasks[i-1].Position {
			t.Fatalf("positions not strictly increasing: %+v", tasks)
		}
	}
	if got := strings.Join(titlesIn(t, db, b, todo.ID), ","); got != "A,C,D,B" {
		t.Fatalf("todo = %s, want A,C,D,B", got)
	}
}

func TestCompleteTaskMovesToDoneColumn(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	done := column(t, b, task.StatusDone)

	old := create(t, db, b, done.ID, "Old")
	tk := create(t, db, b, "", "Ship")
	got, err := db.CompleteTask(ctx, "u1", tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != task.StatusDone || got.ColumnID != done.ID || got.Position <= old.Position {
		t.Fatalf("completed = %+v", got)
	}
	open, _ := db.ListTasks(ctx, b.ID, false)
	for _, o := range open {
		if o.ID == tk.ID {
			t.Fatalf("completed task should be hidden by default")
		}
	}
	again, err := db.CompleteTask(ctx, "u1", tk.ID)
	if err != nil || again.Position != got.Position {
		t.Fatalf("second complete should be a no-op: %+v %v", again, err)
	}
}

func TestUpdateStatusMovesColumn(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	doing := column(t, b, task.StatusInProgress)
	tk := create(t, db, b, "", "Plan")

	status := task.StatusInProgress
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	got, err := db.UpdateTask(context.Background(), "u1", tk.ID, task.Patch{Status: &status, DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	if got.ColumnID != doing.ID || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("updated = %+v", got)
	}
	if _, err := db.UpdateTask(context.Background(), "u1", tk.ID, task.Patch{}); clierr.CodeOf(err) != clierr.NoChanges {
		t.Fatalf("empty patch should be NO_CHANGES, got %v", err)
	}
	cleared, err := db.UpdateTask(context.Background(), "u1", tk.ID, task.Patch{ClearDue: true})
	if err != nil || cleared.DueDate != nil {
		t.Fatalf("clear due: %+v %v", cleared, err)
	}
}

func TestTimerLifecycle(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	tk := create(t, db, b, "", "Call investors")
	other := create(t, db, b, "", "Other")

	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return start }
	e, err := db.StartTimer(ctx, "u1", tk.ID)
	if err != nil || !e.Running() {
		t.Fatalf("start: %+v %v", e, err)
	}
	_, err = db.StartTimer(ctx, "u1", other.ID)
	if !clierr.IsConflict(err) {
		t.Fatalf("second start should conflict, got %v", err)
	}
	if d := err.(*clierr.Error).Details; d["entry_id"] != e.ID {
		t.Fatalf("conflict details = %v", d)
	}
	running, err := db.RunningTimer(ctx, "u1")
	if err != nil || running == nil || running.ID != e.ID {
		t.Fatalf("running = %+v %v", running, err)
	}

	db.now = func() time.Time { return start.Add(90 * time.Second) }
	stopped, err := db.StopTimer(ctx, "u1", e.ID)
	if err != nil || stopped.Minutes() != 2 {
		t.Fatalf("stop: %+v %v", stopped, err)
	}
	if _, err := db.StopTimer(ctx, "u1", e.ID); !clierr.IsConflict(err) {
		t.Fatalf("stopping twice should conflict, got %v", err)
	}
	if _, err := db.StopTimer(ctx, "u2", e.ID); clierr.CodeOf(err) != clierr.EntryNotFound {
		t.Fatalf("foreign entry should be not found, got %v", err)
	}
	if r, _ := db.RunningTimer(ctx, "u1"); r != nil {
		t.Fatalf("no timer should be running, got %+v", r)
	}

	if _, err := db.CreateTimeEntry(ctx, "u1", tk.ID, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateTimeEntry(ctx, "u1", tk.ID, 0); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Fatalf("zero minutes should be invalid, got %v", err)
	}
	got, _ := db.GetTask(ctx, tk.ID)
	if got.TotalTimeMinutes != 32 {
		t.Fatalf("total = %d, want 32", got.TotalTimeMinutes)
	}
	entries, _ := db.ListTimeEntries(ctx, tk.ID)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{time.Second, 1},
		{time.Minute, 1},
		{time.Minute + time.Second, 2},
		{45 * time.Minute, 45},
	}
	for _, tt := range tests {
		if got := ElapsedMinutes(start, start.Add(tt.d)); got != tt.want {
			t.Errorf("ElapsedMinutes(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestCommentsAndActivity(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	tk := create(t, db, b, "", "Draft deck")

	if _, err := db.CreateComment(ctx, "u1", tk.ID, "first pass done"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateComment(ctx, "u1", tk.ID, "   "); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Fatalf("blank comment should be invalid, got %v", err)
	}
	got, _ := db.GetTask(ctx, tk.ID)
	if got.CommentCount != 1 {
		t.Fatalf("comment count = %d", got.CommentCount)
	}

	activity, err := db.ListActivity(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(activity) != 2 || !strings.HasPrefix(activity[0].Description, "created") || activity[1].Description != "commented" {
		t.Fatalf("activity = %+v", activity)
	}
	if _, err := db.ListComments(ctx, "ghost"); clierr.CodeOf(err) != clierr.TaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()
	tk := create(t, db, b, "", "Temp")
	if _, err := db.CreateComment(ctx, "u1", tk.ID, "note"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.DeleteTask(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetTask(ctx, tk.ID); clierr.CodeOf(err) != clierr.TaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND, got %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n); err != nil || n != 0 {
		t.Fatalf("comments left behind: %d %v", n, err)
	}
	if _, err := db.DeleteTask(ctx, tk.ID); clierr.CodeOf(err) != clierr.TaskNotFound {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestCalendarTokenRegeneration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if tok, err := db.CalendarToken(ctx, "u1"); err != nil || tok != nil {
		t.Fatalf("fresh user should have no token: %+v %v", tok, err)
	}
	first, err := db.RegenerateCalendarToken(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.RegenerateCalendarToken(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Token == second.Token || len(second.Token) < 40 {
		t.Fatalf("tokens = %q, %q", first.Token, second.Token)
	}
	if _, err := db.UserForCalendarToken(ctx, first.Token); !clierr.IsNotFound(err) {
		t.Fatalf("revoked token should not resolve, got %v", err)
	}
	user, err := db.UserForCalendarToken(ctx, second.Token)
	if err != nil || user != "u1" {
		t.Fatalf("user = %q, err = %v", user, err)
	}
}

func TestSharingAndFeedTasks(t *testing.T) {
	db := setupTestDB(t)
	b := setupBoard(t, db)
	ctx := context.Background()

	due := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	tk, err := db.CreateTask(ctx, "u1", task.Fields{BoardID: b.ID, Title: "Board meeting", DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	create(t, db, b, "", "Undated")

	acc, err := db.BoardAccess(ctx, "u2", b.ID)
	if err != nil || acc.Member {
		t.Fatalf("stranger access = %+v %v", acc, err)
	}
	if err := db.ShareBoard(ctx, b.ID, "u2", false); err != nil {
		t.Fatal(err)
	}
	acc, _ = db.BoardAccess(ctx, "u2", b.ID)
	if !acc.Member || acc.CanEdit {
		t.Fatalf("viewer access = %+v", acc)
	}
	boards, _ := db.ListBoards(ctx, "u2")
	if len(boards) != 1 || boards[0].CanEdit {
		t.Fatalf("viewer boards = %+v", boards)
	}
	if _, err := db.BoardAccess(ctx, "u2", "ghost"); clierr.CodeOf(err) != clierr.BoardNotFound {
		t.Fatalf("expected BOARD_NOT_FOUND, got %v", err)
	}

	feed, err := db.FeedTasks(ctx, "u2")
	if err != nil || len(feed) != 1 || feed[0].ID != tk.ID {
		t.Fatalf("feed = %+v %v", feed, err)
	}
	if feed, _ := db.FeedTasks(ctx, "u3"); len(feed) != 0 {
		t.Fatalf("outsider feed = %+v", feed)
	}
}
