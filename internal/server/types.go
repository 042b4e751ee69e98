package server

import (
	"context"

	"github.com/twiced-technology-gmbh/taskboard/internal/db"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Storage abstracts the persistence layer used by the handlers.
type Storage interface {
	EnsureDefaultBoard(ctx context.Context, userID string) error
	ListBoards(ctx context.Context, userID string) ([]task.Board, error)
	BoardAccess(ctx context.Context, userID, boardID string) (db.Access, error)
	ShareBoard(ctx context.Context, boardID, userID string, canEdit bool) error

	ListTasks(ctx context.Context, boardID string, includeCompleted bool) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	CreateTask(ctx context.Context, actor string, f task.Fields) (task.Task, error)
	UpdateTask(ctx context.Context, actor, id string, p task.Patch) (task.Task, error)
	DeleteTask(ctx context.Context, id string) (task.Task, error)
	MoveTask(ctx context.Context, actor, id string, to task.Placement) (task.Task, error)
	CompleteTask(ctx context.Context, actor, id string) (task.Task, error)
	AssignTask(ctx context.Context, actor, id string, userID *string) (task.Task, error)

	ListComments(ctx context.Context, taskID string) ([]task.Comment, error)
	CreateComment(ctx context.Context, authorID, taskID, content string) (task.Comment, error)
	ListActivity(ctx context.Context, taskID string) ([]task.ActivityEntry, error)

	ListTimeEntries(ctx context.Context, taskID string) ([]task.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, userID, taskID string, minutes int) (task.TimeEntry, error)
	StartTimer(ctx context.Context, userID, taskID string) (task.TimeEntry, error)
	StopTimer(ctx context.Context, userID, entryID string) (task.TimeEntry, error)
	RunningTimer(ctx context.Context, userID string) (*task.TimeEntry, error)

	CalendarToken(ctx context.Context, userID string) (*task.CalendarToken, error)
	RegenerateCalendarToken(ctx context.Context, userID string) (task.CalendarToken, error)
	UserForCalendarToken(ctx context.Context, token string) (string, error)
	FeedTasks(ctx context.Context, userID string) ([]task.Task, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(h string) (string, error)
}

var _ Storage = (*db.DB)(nil)
