package timer

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// fakeServer enforces one running entry, like the real server.
type fakeServer struct {
	entries map[string]*task.TimeEntry
	seq     int
	starts  int
	now     time.Time
}

func newFakeServer() *fakeServer {
	return &fakeServer{entries: map[string]*task.TimeEntry{}, now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeServer) runningEntry() *task.TimeEntry {
	for _, e := range f.entries {
		if e.Running() {
			return e
		}
	}
	return nil
}

func (f *fakeServer) StartTimer(_ context.Context, taskID string) (task.TimeEntry, error) {
	f.starts++
	if f.runningEntry() != nil {
		return task.TimeEntry{}, clierr.New(clierr.Conflict, "timer already running")
	}
	f.seq++
	started := f.now
	e := &task.TimeEntry{ID: fmt.Sprintf("e%d", f.seq), TaskID: taskID, UserID: "u1", StartedAt: &started}
	f.entries[e.ID] = e
	return *e, nil
}

func (f *fakeServer) StopTimer(_ context.Context, entryID string) (task.TimeEntry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return task.TimeEntry{}, clierr.New(clierr.EntryNotFound, "no entry")
	}
	if !e.Running() {
		return task.TimeEntry{}, clierr.New(clierr.Conflict, "not running")
	}
	mins := 25
	e.DurationMinutes = &mins
	e.StartedAt = nil
	return *e, nil
}

func (f *fakeServer) GetRunningTimer(context.Context) (*task.TimeEntry, error) {
	if e := f.runningEntry(); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeServer) CreateTimeEntry(_ context.Context, taskID string, minutes int) (task.TimeEntry, error) {
	f.seq++
	e := &task.TimeEntry{ID: fmt.Sprintf("e%d", f.seq), TaskID: taskID, DurationMinutes: &minutes}
	f.entries[e.ID] = e
	return *e, nil
}

func newManager(f *fakeServer) *Manager {
	l := log.New()
	l.SetOutput(io.Discard)
	return New(f, log.NewEntry(l))
}

func TestSecondStartConflicts(t *testing.T) {
	srv := newFakeServer()
	m := newManager(srv)
	ctx := context.Background()

	first, err := m.Start(ctx, "task-1")
	if err != nil {
		t.Fatalf("start task-1: %v", err)
	}
	_, err = m.Start(ctx, "task-2")
	if !clierr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if srv.starts != 1 {
		t.Fatalf("second start should not reach the server, got %d calls", srv.starts)
	}
	r := m.Running()
	if r == nil || r.ID != first.ID || r.TaskID != "task-1" {
		t.Fatalf("task-1 timer should still run, got %+v", r)
	}
}

func TestServerConflictRefreshesState(t *testing.T) {
	srv := newFakeServer()
	ctx := context.Background()
	// Timer started from another session.
	if _, err := srv.StartTimer(ctx, "task-9"); err != nil {
		t.Fatal(err)
	}
	m := newManager(srv)
	if _, err := m.Start(ctx, "task-1"); !clierr.IsConflict(err) {
		t.Fatalf("expected conflict from server, got %v", err)
	}
	if r := m.Running(); r == nil || r.TaskID != "task-9" {
		t.Fatalf("manager should adopt the server's running timer, got %+v", r)
	}
}

func TestStopClearsRunning(t *testing.T) {
	srv := newFakeServer()
	m := newManager(srv)
	ctx := context.Background()
	e, _ := m.Start(ctx, "task-1")
	stopped, err := m.Stop(ctx, e.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Running() || stopped.Minutes() != 25 {
		t.Fatalf("unexpected stopped entry %+v", stopped)
	}
	if m.Running() != nil {
		t.Fatalf("running should be cleared")
	}
	if _, err := m.Start(ctx, "task-2"); err != nil {
		t.Fatalf("start after stop: %v", err)
	}
}

func TestRestore(t *testing.T) {
	srv := newFakeServer()
	ctx := context.Background()
	srv.StartTimer(ctx, "task-3")
	m := newManager(srv)
	if m.Running() != nil {
		t.Fatalf("new manager must start stopped")
	}
	r, err := m.Restore(ctx)
	if err != nil || r == nil || r.TaskID != "task-3" {
		t.Fatalf("restore = %+v, %v", r, err)
	}
}

func TestStopRunningWithoutTimer(t *testing.T) {
	m := newManager(newFakeServer())
	if _, err := m.StopRunning(context.Background()); !clierr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManualEntryBypassesTimer(t *testing.T) {
	srv := newFakeServer()
	m := newManager(srv)
	ctx := context.Background()
	m.Start(ctx, "task-1")
	e, err := m.AddManualEntry(ctx, "task-2", 30)
	if err != nil {
		t.Fatalf("manual entry: %v", err)
	}
	if e.Running() || e.Minutes() != 30 {
		t.Fatalf("manual entry should be completed: %+v", e)
	}
	if r := m.Running(); r == nil || r.TaskID != "task-1" {
		t.Fatalf("running timer disturbed: %+v", r)
	}
	if _, err := m.AddManualEntry(ctx, "task-2", 0); clierr.CodeOf(err) != clierr.InvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestToggle(t *testing.T) {
	m := newManager(newFakeServer())
	ctx := context.Background()
	if _, running, err := m.Toggle(ctx, "task-1"); err != nil || !running {
		t.Fatalf("toggle on: running=%v err=%v", running, err)
	}
	if _, running, err := m.Toggle(ctx, "task-2"); !clierr.IsConflict(err) || running {
		t.Fatalf("toggle other task should conflict: running=%v err=%v", running, err)
	}
	if _, running, err := m.Toggle(ctx, "task-1"); err != nil || running {
		t.Fatalf("toggle off: running=%v err=%v", running, err)
	}
}

func TestElapsed(t *testing.T) {
	srv := newFakeServer()
	m := newManager(srv)
	m.now = func() time.Time { return srv.now.Add(90 * time.Second) }
	if m.Elapsed() != 0 {
		t.Fatalf("stopped manager has no elapsed time")
	}
	m.Start(context.Background(), "task-1")
	if got := m.Elapsed(); got != 90*time.Second {
		t.Fatalf("Elapsed = %v", got)
	}
}
