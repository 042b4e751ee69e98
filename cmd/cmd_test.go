package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/config"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/session"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var testColumns = []task.Column{
	{ID: "c0", Name: "Backlog", Status: task.StatusBacklog, Position: 0},
	{ID: "c1", Name: "To Do", Status: task.StatusTodo, Position: 1},
	{ID: "c2", Name: "In Progress", Status: task.StatusInProgress, Position: 2},
	{ID: "c3", Name: "Done", Status: task.StatusDone, Position: 3},
}

func loadedSession(t *testing.T, tasks ...task.Task) *session.Session {
	t.Helper()
	sess := session.New(nil, session.Options{})
	sess.Store.SetBoard(task.Board{ID: "b1", Name: "Ops", CanEdit: true, Columns: testColumns})
	sess.Store.Load(tasks)
	return sess
}

func TestResolveTask(t *testing.T) {
	sess := loadedSession(t,
		task.Task{ID: "abc123", ColumnID: "c1", Title: "one", Position: 1},
		task.Task{ID: "abd456", ColumnID: "c1", Title: "two", Position: 2},
	)

	if got, err := resolveTask(sess, "abc123"); err != nil || got.Title != "one" {
		t.Errorf("exact id: %v, %v", got, err)
	}
	if got, err := resolveTask(sess, "abd"); err != nil || got.Title != "two" {
		t.Errorf("unique prefix: %v, %v", got, err)
	}
	if _, err := resolveTask(sess, "ab"); clierr.CodeOf(err) != clierr.InvalidTaskID {
		t.Errorf("ambiguous prefix: err = %v", err)
	}
	if _, err := resolveTask(sess, "zz"); clierr.CodeOf(err) != clierr.TaskNotFound {
		t.Errorf("unknown id: err = %v", err)
	}
	if _, err := resolveTask(sess, "  "); clierr.CodeOf(err) != clierr.InvalidTaskID {
		t.Errorf("blank id: err = %v", err)
	}
}

func TestResolveColumn(t *testing.T) {
	tests := map[string]string{
		"c2":          "c2",
		"in progress": "c2",
		"IN_PROGRESS": "c2",
		"done":        "c3",
	}
	for in, want := range tests {
		got, err := resolveColumn(testColumns, in)
		if err != nil || got.ID != want {
			t.Errorf("resolveColumn(%q) = %v, %v; want %s", in, got.ID, err, want)
		}
	}
	if _, err := resolveColumn(testColumns, "review"); clierr.CodeOf(err) != clierr.NotFound {
		t.Errorf("unknown column: err = %v", err)
	}
}

func TestParseMinutes(t *testing.T) {
	tests := map[string]int{"45": 45, "1h30m": 90, "90s": 2, "0": 0}
	for in, want := range tests {
		got, err := parseMinutes(in)
		if err != nil || got != want {
			t.Errorf("parseMinutes(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := parseMinutes("soon"); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Errorf("garbage: err = %v", err)
	}
}

func windowCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().String("from", "", "")
	c.Flags().String("to", "", "")
	c.Flags().Int("days", 0, "")
	if err := c.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCalendarWindow(t *testing.T) {
	today := date.New(2026, 3, 10)

	from, to, err := calendarWindow(windowCmd(t, "--days", "7"), today)
	if err != nil || from != today || to != date.New(2026, 3, 16) {
		t.Errorf("--days 7: %s..%s, %v", from, to, err)
	}

	from, to, err = calendarWindow(windowCmd(t, "--from", "2026-03-01", "--to", "2026-03-31"), today)
	if err != nil || from != date.New(2026, 3, 1) || to != date.New(2026, 3, 31) {
		t.Errorf("explicit: %s..%s, %v", from, to, err)
	}

	if _, _, err := calendarWindow(windowCmd(t), today); err != nil {
		t.Errorf("open window: %v", err)
	}

	bad := [][]string{
		{"--from", "2026-03-10", "--to", "2026-03-01"},
		{"--days", "3", "--to", "2026-03-01"},
		{"--days", "-1"},
		{"--from", "march"},
	}
	for _, args := range bad {
		if _, _, err := calendarWindow(windowCmd(t, args...), today); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func patchCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	addEditFlags(c.Flags())
	if err := c.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestBuildPatch(t *testing.T) {
	p, err := buildPatch(patchCmd(t, "--title", "New", "--status", "in_progress", "--due", "2026-04-01T09:30"), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if *p.Title != "New" || *p.Status != task.StatusInProgress {
		t.Errorf("patch = %+v", p)
	}
	if want := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC); !p.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", p.DueDate, want)
	}

	if _, err := buildPatch(patchCmd(t), time.UTC); clierr.CodeOf(err) != clierr.NoChanges {
		t.Errorf("empty patch: err = %v", err)
	}
	if _, err := buildPatch(patchCmd(t, "--due", "2026-04-01", "--clear-due"), time.UTC); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Errorf("due and clear-due: err = %v", err)
	}
	p, err = buildPatch(patchCmd(t, "--body", "notes"), time.UTC)
	if err != nil || p.Description == nil || *p.Description != "notes" {
		t.Errorf("--body alias: %+v, %v", p, err)
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := config.NewDefault("http://localhost:8080")
	acc := configAccessors()

	for _, key := range allConfigKeys() {
		if _, ok := acc[key]; !ok {
			t.Errorf("key %q has no accessor", key)
		}
	}
	if err := acc["view.show_completed"].set(cfg, "yes"); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Errorf("bad bool: err = %v", err)
	}
	if err := acc["server.timeout"].set(cfg, "5s"); err != nil || cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout: %v, %v", cfg.Timeout(), err)
	}
	if acc["version"].writable {
		t.Error("version must be read-only")
	}

	if got := displayValue("auth.token", "secret-token-1234"); got != "****1234" {
		t.Errorf("masked token = %v", got)
	}
	if got := displayValue("board", "b1"); got != "b1" {
		t.Errorf("board = %v", got)
	}
}
