// Package drag turns drag gestures on the board into optimistic local moves
// confirmed by the server.
package drag

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// State is the phase of one gesture.
type State int

// Gesture phases.
const (
	Idle State = iota
	Dragging
	Dropped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Backend is the part of the server API a move needs.
type Backend interface {
	MoveTask(ctx context.Context, id string, to task.Placement) error
	GetTasks(ctx context.Context, q task.Query) ([]task.Task, error)
}

// Loader reports which tasks a refetch should request.
type Loader func() task.Query

// Controller owns the gestures of one board.
type Controller struct {
	store   *store.Store
	backend Backend
	query   Loader
	log     *log.Entry
}

// New returns a controller over s.
func New(s *store.Store, b Backend, query Loader, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{store: s, backend: b, query: query, log: logger.WithField("component", "drag")}
}

// Target is a drop location; Index counts the column's tasks without the
// dragged one.
type Target struct {
	ColumnID string
	Index    int
}

// Gesture is one drag from pick-up to drop or cancel.
type Gesture struct {
	c      *Controller
	taskID string
	source Target
	target Target
	state  State
}

// Begin picks up a task. It returns false when the task is not on the board.
func (c *Controller) Begin(taskID string) (*Gesture, bool) {
	col, idx, ok := c.store.IndexOf(taskID)
	if !ok {
		return nil, false
	}
	src := Target{ColumnID: col, Index: idx}
	return &Gesture{c: c, taskID: taskID, source: src, target: src, state: Dragging}, true
}

// TaskID returns the dragged task.
func (g *Gesture) TaskID() string { return g.taskID }

// State returns the gesture phase.
func (g *Gesture) State() State { return g.state }

// Source returns where the task was picked up.
func (g *Gesture) Source() Target { return g.source }

// Target returns the current hover location.
func (g *Gesture) Target() Target { return g.target }

// Hover records the location under the pointer. Only valid while dragging.
func (g *Gesture) Hover(t Target) {
	if g.state == Dragging {
		g.target = t
	}
}

// Cancel abandons the gesture without touching the store or the server.
func (g *Gesture) Cancel() {
	if g.state == Dragging {
		g.state = Cancelled
	}
}

// Drop ends the gesture at t. The index is clamped to the target column.
// When t differs from the source the move is applied to the store at once
// and returned as pending; nil means nothing needs to reach the server.
func (g *Gesture) Drop(t Target) *Pending {
	if g.state != Dragging {
		return nil
	}
	t.Index = g.c.clampIndex(g.taskID, t)
	g.target = t
	g.state = Dropped
	if t == g.source {
		return nil
	}

	snap, ok := g.c.store.ApplyLocalMove(g.taskID, t.ColumnID, t.Index)
	if !ok {
		return nil
	}
	g.c.log.WithFields(log.Fields{
		"task":   g.taskID,
		"from":   g.source.ColumnID,
		"to":     t.ColumnID,
		"index":  t.Index,
		"source": g.source.Index,
	}).Debug("applied optimistic move")
	return &Pending{c: g.c, taskID: g.taskID, target: t, snap: snap}
}

// clampIndex limits t.Index to the tasks of t.ColumnID other than taskID.
func (c *Controller) clampIndex(taskID string, t Target) int {
	n := 0
	for _, s := range c.store.GetByColumn(t.ColumnID) {
		if s.ID != taskID {
			n++
		}
	}
	return min(max(t.Index, 0), n)
}

// Pending is an optimistic move awaiting the server.
type Pending struct {
	c      *Controller
	taskID string
	target Target
	snap   store.Snapshot
}

// TaskID returns the moved task.
func (p *Pending) TaskID() string { return p.taskID }

// Commit sends the move and reconciles. On success the board is refetched.
// On failure the store is rolled back, then refetched, and the move error is
// returned. Reconciliation runs even if ctx is cancelled after the request.
func (p *Pending) Commit(ctx context.Context) error {
	moveErr := p.c.backend.MoveTask(ctx, p.taskID, task.Placement{
		ColumnID:         p.target.ColumnID,
		Index:            p.target.Index,
		IncludeCompleted: p.c.currentQuery().IncludeCompleted,
	})
	if moveErr != nil {
		restored := p.c.store.Rollback(p.snap)
		p.c.log.WithFields(log.Fields{
			"task":     p.taskID,
			"class":    clierr.Kind(moveErr).String(),
			"restored": restored,
		}).WithError(moveErr).Warn("move rejected, rolled back")
	}

	refetchErr := p.c.Refetch(context.WithoutCancel(ctx))
	if refetchErr != nil {
		p.c.log.WithError(refetchErr).Warn("refetch after move failed")
	}

	if moveErr != nil {
		return errors.Join(moveErr, refetchErr)
	}
	return refetchErr
}

func (c *Controller) currentQuery() task.Query {
	if c.query == nil {
		return task.Query{}
	}
	return c.query()
}

// Refetch replaces the store with the server's task list.
func (c *Controller) Refetch(ctx context.Context) error {
	tasks, err := c.backend.GetTasks(ctx, c.currentQuery())
	if err != nil {
		return err
	}
	c.store.Load(tasks)
	return nil
}

// Move runs a whole gesture: pick up, drop at t, commit. It is a no-op for
// unknown tasks and same-place drops.
func (c *Controller) Move(ctx context.Context, taskID string, t Target) error {
	g, ok := c.Begin(taskID)
	if !ok {
		return task.NotFound(taskID)
	}
	p := g.Drop(t)
	if p == nil {
		return nil
	}
	return p.Commit(ctx)
}
