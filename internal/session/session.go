// Package session ties the store, the drag controller, the timer and the
// calendar feed to one open board and runs task CRUD against the server.
package session

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/calfeed"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
	"github.com/twiced-technology-gmbh/taskboard/internal/timer"
)

// Backend is the full server API a session consumes.
type Backend interface {
	drag.Backend
	timer.Backend
	calfeed.Backend

	GetBoards(ctx context.Context) ([]task.Board, error)
	CreateTask(ctx context.Context, f task.Fields) (task.Task, error)
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CompleteTask(ctx context.Context, id string) (task.Task, error)
	AssignTask(ctx context.Context, id string, userID *string) (task.Task, error)
	GetTaskComments(ctx context.Context, id string) ([]task.Comment, error)
	CreateComment(ctx context.Context, id, text string) (task.Comment, error)
	GetTimeEntries(ctx context.Context, id string) ([]task.TimeEntry, error)
	GetTaskActivity(ctx context.Context, id string) ([]task.ActivityEntry, error)
}

// Options configure a session.
type Options struct {
	IncludeCompleted bool
	FeedBaseURL      string
	Logger           *log.Entry
}

// Detail is a task with its lazily loaded children.
type Detail struct {
	Task        task.Task            `json:"task"`
	Comments    []task.Comment       `json:"comments"`
	TimeEntries []task.TimeEntry     `json:"time_entries"`
	Activity    []task.ActivityEntry `json:"activity"`
}

// Session is one open board.
type Session struct {
	backend Backend
	log     *log.Entry

	Store *store.Store
	Drag  *drag.Controller
	Timer *timer.Manager
	Feed  *calfeed.Manager

	mu               sync.Mutex
	includeCompleted bool
	details          map[string]Detail
}

// New returns a session with no board open.
func New(b Backend, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	s := &Session{
		backend:          b,
		log:              logger.WithField("component", "session"),
		Store:            store.New(),
		includeCompleted: opts.IncludeCompleted,
		details:          map[string]Detail{},
	}
	s.Drag = drag.New(s.Store, b, s.Query, logger)
	s.Timer = timer.New(b, logger)
	s.Feed = calfeed.New(b, opts.FeedBaseURL)
	return s
}

// Boards lists the boards visible to the user.
func (s *Session) Boards(ctx context.Context) ([]task.Board, error) {
	return s.backend.GetBoards(ctx)
}

// Open loads boardID, or the first board when boardID is empty, and restores
// the running timer.
func (s *Session) Open(ctx context.Context, boardID string) error {
	boards, err := s.backend.GetBoards(ctx)
	if err != nil {
		return err
	}
	b, ok := pickBoard(boards, boardID)
	if !ok {
		if boardID == "" {
			return clierr.New(clierr.BoardNotFound, "no boards available")
		}
		return clierr.Newf(clierr.BoardNotFound, "board %s not found", boardID).
			WithDetails(map[string]any{"id": boardID})
	}
	s.Store.SetBoard(b)
	if err := s.Refetch(ctx); err != nil {
		return err
	}
	if _, err := s.Timer.Restore(ctx); err != nil {
		s.log.WithError(err).Warn("restoring running timer failed")
	}
	return nil
}

func pickBoard(boards []task.Board, id string) (task.Board, bool) {
	for _, b := range boards {
		if id == "" || b.ID == id {
			return b, true
		}
	}
	return task.Board{}, false
}

// Board returns the open board.
func (s *Session) Board() task.Board { return s.Store.Board() }

// Query is the task query for the open board.
func (s *Session) Query() task.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return task.Query{BoardID: s.Store.Board().ID, IncludeCompleted: s.includeCompleted}
}

// SetIncludeCompleted changes whether refetches include completed tasks.
func (s *Session) SetIncludeCompleted(v bool) {
	s.mu.Lock()
	s.includeCompleted = v
	s.mu.Unlock()
}

// Refetch replaces the store with the server's tasks and drops cached details.
func (s *Session) Refetch(ctx context.Context) error {
	if err := s.Drag.Refetch(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.details = map[string]Detail{}
	s.mu.Unlock()
	return nil
}

// reconcile follows a successful mutation. A failed refetch leaves the store
// stale until the next one; the mutation itself still succeeded.
func (s *Session) reconcile(ctx context.Context, id string) {
	s.invalidate(id)
	if err := s.Refetch(ctx); err != nil {
		s.log.WithError(err).WithField("task", id).Warn("refetch after mutation failed")
	}
}

func (s *Session) fail(op, id string, err error) error {
	s.log.WithFields(log.Fields{"op": op, "task": id, "class": clierr.Kind(err).String()}).
		WithError(err).Debug("mutation failed")
	return err
}

// Create adds a task to the open board. An empty column lands it in "To Do".
func (s *Session) Create(ctx context.Context, f task.Fields) (task.Task, error) {
	if f.BoardID == "" {
		f.BoardID = s.Board().ID
	}
	if f.ColumnID == "" {
		if c, ok := task.DefaultColumn(s.Store.Columns(), ""); ok {
			f.ColumnID = c.ID
		}
	}
	if err := task.ValidateFields(f); err != nil {
		return task.Task{}, err
	}
	t, err := s.backend.CreateTask(ctx, f)
	if err != nil {
		return task.Task{}, s.fail("create", "", err)
	}
	s.reconcile(ctx, t.ID)
	return t, nil
}

// Update applies a partial update.
func (s *Session) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if err := task.ValidatePatch(p); err != nil {
		return task.Task{}, err
	}
	t, err := s.backend.UpdateTask(ctx, id, p)
	if err != nil {
		return task.Task{}, s.fail("update", id, err)
	}
	s.reconcile(ctx, id)
	return t, nil
}

// Delete removes a task permanently.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteTask(ctx, id); err != nil {
		return s.fail("delete", id, err)
	}
	s.reconcile(ctx, id)
	return nil
}

// Complete marks a task done.
func (s *Session) Complete(ctx context.Context, id string) (task.Task, error) {
	t, err := s.backend.CompleteTask(ctx, id)
	if err != nil {
		return task.Task{}, s.fail("complete", id, err)
	}
	s.reconcile(ctx, id)
	return t, nil
}

// Assign sets or, with a nil userID, clears the assignee.
func (s *Session) Assign(ctx context.Context, id string, userID *string) (task.Task, error) {
	t, err := s.backend.AssignTask(ctx, id, userID)
	if err != nil {
		return task.Task{}, s.fail("assign", id, err)
	}
	s.reconcile(ctx, id)
	return t, nil
}

// Move reorders a task through the drag controller. The returned warning is
// set when the target column goes over its WIP limit; the move happens anyway.
func (s *Session) Move(ctx context.Context, id, columnID string, index int) (*clierr.Error, error) {
	col, ok := task.FindColumn(s.Store.Columns(), columnID)
	if !ok {
		return nil, clierr.Newf(clierr.NotFound, "column %s not found", columnID).
			WithDetails(map[string]any{"column_id": columnID})
	}
	cur, ok := s.Store.Get(id)
	if !ok {
		return nil, task.NotFound(id)
	}
	warn := board.CheckWIPLimit(col, board.CountByColumn(s.Store.Tasks()), cur.ColumnID)

	s.invalidate(id)
	if err := s.Drag.Move(ctx, id, drag.Target{ColumnID: columnID, Index: index}); err != nil {
		return warn, err
	}
	return warn, nil
}

// ToggleTimer starts or stops the timer on id. Stopping refetches so the
// task's tracked total is current.
func (s *Session) ToggleTimer(ctx context.Context, id string) (task.TimeEntry, bool, error) {
	e, running, err := s.Timer.Toggle(ctx, id)
	if err != nil {
		return e, running, err
	}
	if !running {
		s.reconcile(ctx, id)
	} else {
		s.invalidate(id)
	}
	return e, running, nil
}

// StopTimer stops the running timer wherever it is.
func (s *Session) StopTimer(ctx context.Context) (task.TimeEntry, error) {
	e, err := s.Timer.StopRunning(ctx)
	if err != nil {
		return e, err
	}
	s.reconcile(ctx, e.TaskID)
	return e, nil
}

// AddTime records a completed manual entry.
func (s *Session) AddTime(ctx context.Context, id string, minutes int) (task.TimeEntry, error) {
	e, err := s.Timer.AddManualEntry(ctx, id, minutes)
	if err != nil {
		return e, s.fail("add time", id, err)
	}
	s.reconcile(ctx, id)
	return e, nil
}

// AddComment appends a comment and extends the cached detail in place.
func (s *Session) AddComment(ctx context.Context, id, text string) (task.Comment, error) {
	if err := task.ValidateComment(text); err != nil {
		return task.Comment{}, err
	}
	c, err := s.backend.CreateComment(ctx, id, text)
	if err != nil {
		return task.Comment{}, s.fail("comment", id, err)
	}
	s.mu.Lock()
	if d, ok := s.details[id]; ok {
		d.Comments = append(d.Comments, c)
		d.Task.CommentCount++
		s.details[id] = d
	}
	s.mu.Unlock()
	return c, nil
}

// Detail returns the task with comments, time entries and activity, loading
// them on first use.
func (s *Session) Detail(ctx context.Context, id string) (Detail, error) {
	s.mu.Lock()
	d, ok := s.details[id]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	t, ok := s.Store.Get(id)
	if !ok {
		return Detail{}, task.NotFound(id)
	}
	comments, err := s.backend.GetTaskComments(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	entries, err := s.backend.GetTimeEntries(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	activity, err := s.backend.GetTaskActivity(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d = Detail{Task: t, Comments: comments, TimeEntries: entries, Activity: activity}

	s.mu.Lock()
	s.details[id] = d
	s.mu.Unlock()
	return d, nil
}

func (s *Session) invalidate(id string) {
	s.mu.Lock()
	delete(s.details, id)
	s.mu.Unlock()
}
