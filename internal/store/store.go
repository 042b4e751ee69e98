// Package store holds the in-memory task set of the open board.
package store

import (
	"sort"
	"sync"

	"github.com/twiced-technology-gmbh/taskboard/internal/ordering"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Store is the local replica of one board. The mutex lets the TUI render
// while a command goroutine reconciles.
type Store struct {
	mu         sync.RWMutex
	board      task.Board
	tasks      map[string]task.Task
	generation uint64
}

// Snapshot is a point-in-time copy of the task set.
type Snapshot struct {
	tasks      map[string]task.Task
	generation uint64
}

// Len returns the number of tasks captured.
func (s Snapshot) Len() int { return len(s.tasks) }

// New returns an empty store.
func New() *Store {
	return &Store{tasks: map[string]task.Task{}}
}

// SetBoard replaces the board and its columns.
func (s *Store) SetBoard(b task.Board) {
	cols := append([]task.Column(nil), b.Columns...)
	task.SortColumns(cols)
	b.Columns = cols

	s.mu.Lock()
	s.board = b
	s.mu.Unlock()
}

// Board returns the current board with columns in display order.
func (s *Store) Board() task.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.board
	b.Columns = append([]task.Column(nil), s.board.Columns...)
	return b
}

// Columns returns the board's columns in display order.
func (s *Store) Columns() []task.Column {
	return s.Board().Columns
}

// Load replaces the whole task set. Snapshots taken before the call become stale.
func (s *Store) Load(tasks []task.Task) {
	next := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		next[t.ID] = t.Clone()
	}

	s.mu.Lock()
	s.tasks = next
	s.generation++
	s.mu.Unlock()
}

// Snapshot captures the current task set.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	cp := make(map[string]task.Task, len(s.tasks))
	for id, t := range s.tasks {
		cp[id] = t.Clone()
	}
	return Snapshot{tasks: cp, generation: s.generation}
}

// ApplyLocalMove moves a task to index within targetColumnID, where index
// counts the column's tasks without the moved one. Siblings are resequenced
// as needed. It returns the state before the move; ok is false when the task
// is unknown and nothing changed.
func (s *Store) ApplyLocalMove(taskID, targetColumnID string, index int) (snap Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap = s.snapshotLocked()
	moved, found := s.tasks[taskID]
	if !found {
		return snap, false
	}

	siblings := s.columnLocked(targetColumnID, taskID)
	ord := make([]ordering.Sibling, len(siblings))
	for i, t := range siblings {
		ord[i] = ordering.Sibling{ID: t.ID, Position: t.Position}
	}
	res := ordering.InsertionPositions(ord, index)

	for id, pos := range res.Resequenced {
		t := s.tasks[id]
		t.Position = pos
		s.tasks[id] = t
	}
	moved.ColumnID = targetColumnID
	moved.Position = res.Moved
	if col, ok := task.FindColumn(s.board.Columns, targetColumnID); ok {
		task.SyncStatus(&moved, col)
	}
	s.tasks[taskID] = moved
	return snap, true
}

// Rollback restores snap. A snapshot taken before the latest Load is stale
// and is ignored; Rollback reports whether it restored anything.
func (s *Store) Rollback(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.tasks == nil || snap.generation != s.generation {
		return false
	}
	cp := make(map[string]task.Task, len(snap.tasks))
	for id, t := range snap.tasks {
		cp[id] = t.Clone()
	}
	s.tasks = cp
	return true
}

// GetByColumn returns the column's tasks by ascending position, including
// unconfirmed local moves.
func (s *Store) GetByColumn(columnID string) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columnLocked(columnID, "")
}

func (s *Store) columnLocked(columnID, exclude string) []task.Task {
	var out []task.Task
	for id, t := range s.tasks {
		if t.ColumnID == columnID && id != exclude {
			out = append(out, t.Clone())
		}
	}
	SortByPosition(out)
	return out
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, false
	}
	return t.Clone(), true
}

// IndexOf returns the task's column and its index within it.
func (s *Store) IndexOf(id string) (columnID string, index int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, found := s.tasks[id]
	if !found {
		return "", 0, false
	}
	for i, sib := range s.columnLocked(t.ColumnID, "") {
		if sib.ID == id {
			return t.ColumnID, i, true
		}
	}
	return t.ColumnID, 0, true
}

// Tasks returns every task ordered by column position, then task position.
func (s *Store) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colPos := make(map[string]int, len(s.board.Columns))
	for _, c := range s.board.Columns {
		colPos[c.ID] = c.Position
	}
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := colPos[out[i].ColumnID], colPos[out[j].ColumnID]
		if ci != cj {
			return ci < cj
		}
		if out[i].ColumnID != out[j].ColumnID {
			return out[i].ColumnID < out[j].ColumnID
		}
		return less(out[i], out[j])
	})
	return out
}

// Len returns the number of tasks held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// SortByPosition orders tasks by position, breaking ties by id so the order
// is deterministic.
func SortByPosition(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}

func less(a, b task.Task) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ID < b.ID
}
