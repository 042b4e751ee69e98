// Package timer tracks the single running time entry of the current user.
package timer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Backend is the time tracking part of the server API.
type Backend interface {
	StartTimer(ctx context.Context, taskID string) (task.TimeEntry, error)
	StopTimer(ctx context.Context, entryID string) (task.TimeEntry, error)
	GetRunningTimer(ctx context.Context) (*task.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, taskID string, minutes int) (task.TimeEntry, error)
}

// Manager mirrors the server's running timer.
type Manager struct {
	backend Backend
	log     *log.Entry
	now     func() time.Time

	mu      sync.Mutex
	running *task.TimeEntry
}

// New returns a stopped manager. Call Restore to pick up server state.
func New(b Backend, logger *log.Entry) *Manager {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Manager{backend: b, log: logger.WithField("component", "timer"), now: time.Now}
}

// Restore asks the server for the running entry and adopts it.
func (m *Manager) Restore(ctx context.Context) (*task.TimeEntry, error) {
	e, err := m.backend.GetRunningTimer(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = copyEntry(e)
	return copyEntry(m.running), nil
}

// Running returns the running entry, or nil.
func (m *Manager) Running() *task.TimeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyEntry(m.running)
}

// Start begins a timer on taskID. It fails with a conflict without calling
// the server when a timer is already known to run. A conflict from the
// server refreshes the local state.
func (m *Manager) Start(ctx context.Context, taskID string) (task.TimeEntry, error) {
	m.mu.Lock()
	if r := m.running; r != nil {
		m.mu.Unlock()
		return task.TimeEntry{}, runningConflict(*r)
	}
	m.mu.Unlock()

	e, err := m.backend.StartTimer(ctx, taskID)
	if err != nil {
		if clierr.IsConflict(err) {
			if _, rerr := m.Restore(context.WithoutCancel(ctx)); rerr != nil {
				m.log.WithError(rerr).Warn("refreshing running timer failed")
			}
		}
		return task.TimeEntry{}, err
	}

	m.mu.Lock()
	m.running = copyEntry(&e)
	m.mu.Unlock()
	m.log.WithFields(log.Fields{"task": taskID, "entry": e.ID}).Debug("timer started")
	return e, nil
}

// Stop ends the entry. The server computes the duration.
func (m *Manager) Stop(ctx context.Context, entryID string) (task.TimeEntry, error) {
	e, err := m.backend.StopTimer(ctx, entryID)
	if err != nil {
		if clierr.IsNotFound(err) || clierr.IsConflict(err) {
			m.clear(entryID)
		}
		return task.TimeEntry{}, err
	}
	m.clear(entryID)
	m.log.WithFields(log.Fields{"entry": entryID, "minutes": e.Minutes()}).Debug("timer stopped")
	return e, nil
}

// StopRunning stops whatever timer runs, asking the server when the
// manager has not seen one.
func (m *Manager) StopRunning(ctx context.Context) (task.TimeEntry, error) {
	r := m.Running()
	if r == nil {
		var err error
		if r, err = m.Restore(ctx); err != nil {
			return task.TimeEntry{}, err
		}
	}
	if r == nil {
		return task.TimeEntry{}, clierr.New(clierr.EntryNotFound, "no timer is running")
	}
	return m.Stop(ctx, r.ID)
}

// Toggle starts a timer on taskID, or stops the running one if it belongs
// to taskID. It reports whether a timer now runs.
func (m *Manager) Toggle(ctx context.Context, taskID string) (task.TimeEntry, bool, error) {
	if r := m.Running(); r != nil && r.TaskID == taskID {
		e, err := m.Stop(ctx, r.ID)
		return e, false, err
	}
	e, err := m.Start(ctx, taskID)
	return e, err == nil, err
}

// AddManualEntry records completed time. It does not touch the running timer.
func (m *Manager) AddManualEntry(ctx context.Context, taskID string, minutes int) (task.TimeEntry, error) {
	if err := task.ValidateMinutes(minutes); err != nil {
		return task.TimeEntry{}, err
	}
	return m.backend.CreateTimeEntry(ctx, taskID, minutes)
}

// Elapsed returns how long the running entry has run, for display.
func (m *Manager) Elapsed() time.Duration {
	r := m.Running()
	if r == nil || r.StartedAt == nil {
		return 0
	}
	return max(m.now().Sub(*r.StartedAt), 0)
}

func (m *Manager) clear(entryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running != nil && m.running.ID == entryID {
		m.running = nil
	}
}

func runningConflict(r task.TimeEntry) *clierr.Error {
	return clierr.Newf(clierr.Conflict, "a timer is already running on task %s; stop it first", r.TaskID).
		WithDetails(map[string]any{"entry_id": r.ID, "task_id": r.TaskID})
}

func copyEntry(e *task.TimeEntry) *task.TimeEntry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.StartedAt != nil {
		s := *e.StartedAt
		cp.StartedAt = &s
	}
	if e.DurationMinutes != nil {
		d := *e.DurationMinutes
		cp.DurationMinutes = &d
	}
	return &cp
}
