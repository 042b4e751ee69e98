package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Wire bodies shared with the server.
type (
	// MoveRequest is the body of a move call.
	// Index counts done tasks only when IncludeCompleted is set.
	MoveRequest struct {
		ColumnID         string `json:"column_id"`
		Index            int    `json:"index"`
		IncludeCompleted bool   `json:"include_completed,omitempty"`
	}
	// AssignRequest is the body of an assign call; a null id unassigns.
	AssignRequest struct {
		AssigneeID *string `json:"assignee_id"`
	}
	// CommentRequest is the body of a create comment call.
	CommentRequest struct {
		Content string `json:"content"`
	}
	// TimeEntryRequest is the body of a manual time entry.
	TimeEntryRequest struct {
		Minutes int `json:"minutes"`
	}
	// ShareRequest grants another user access to a board.
	ShareRequest struct {
		UserID  string `json:"user_id"`
		CanEdit bool   `json:"can_edit"`
	}
)

// GetBoards lists the user's boards with their columns.
func (c *Client) GetBoards(ctx context.Context) ([]task.Board, error) {
	var out []task.Board
	_, err := c.do(ctx, http.MethodGet, "/api/boards", nil, nil, &out)
	return out, err
}

// ShareBoard grants userID access to a board the caller owns.
func (c *Client) ShareBoard(ctx context.Context, boardID, userID string, canEdit bool) error {
	_, err := c.do(ctx, http.MethodPost, "/api/boards/"+escape(boardID)+"/members", nil,
		ShareRequest{UserID: userID, CanEdit: canEdit}, nil)
	return err
}

// GetTasks lists the tasks of a board.
func (c *Client) GetTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	v := url.Values{}
	if q.IncludeCompleted {
		v.Set("include_completed", "true")
	}
	var out []task.Task
	_, err := c.do(ctx, http.MethodGet, "/api/boards/"+escape(q.BoardID)+"/tasks", v, nil, &out)
	return out, err
}

// CreateTask adds a task.
func (c *Client) CreateTask(ctx context.Context, f task.Fields) (task.Task, error) {
	var out task.Task
	_, err := c.do(ctx, http.MethodPost, "/api/tasks", nil, f, &out)
	return out, err
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	var out task.Task
	_, err := c.do(ctx, http.MethodPatch, "/api/tasks/"+escape(id), nil, p, &out)
	return out, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/tasks/"+escape(id), nil, nil, nil)
	return err
}

// CompleteTask marks a task done.
func (c *Client) CompleteTask(ctx context.Context, id string) (task.Task, error) {
	var out task.Task
	_, err := c.do(ctx, http.MethodPost, "/api/tasks/"+escape(id)+"/complete", nil, nil, &out)
	return out, err
}

// MoveTask places a task in to.ColumnID at to.Index.
func (c *Client) MoveTask(ctx context.Context, id string, to task.Placement) error {
	_, err := c.do(ctx, http.MethodPost, "/api/tasks/"+escape(id)+"/move", nil,
		MoveRequest{ColumnID: to.ColumnID, Index: to.Index, IncludeCompleted: to.IncludeCompleted}, nil)
	return err
}

// AssignTask sets or clears the assignee.
func (c *Client) AssignTask(ctx context.Context, id string, userID *string) (task.Task, error) {
	var out task.Task
	_, err := c.do(ctx, http.MethodPut, "/api/tasks/"+escape(id)+"/assignee", nil,
		AssignRequest{AssigneeID: userID}, &out)
	return out, err
}

// GetTaskComments lists a task's comments, oldest first.
func (c *Client) GetTaskComments(ctx context.Context, id string) ([]task.Comment, error) {
	var out []task.Comment
	_, err := c.do(ctx, http.MethodGet, "/api/tasks/"+escape(id)+"/comments", nil, nil, &out)
	return out, err
}

// CreateComment appends a comment.
func (c *Client) CreateComment(ctx context.Context, id, text string) (task.Comment, error) {
	var out task.Comment
	_, err := c.do(ctx, http.MethodPost, "/api/tasks/"+escape(id)+"/comments", nil,
		CommentRequest{Content: text}, &out)
	return out, err
}

// GetTimeEntries lists a task's time entries.
func (c *Client) GetTimeEntries(ctx context.Context, id string) ([]task.TimeEntry, error) {
	var out []task.TimeEntry
	_, err := c.do(ctx, http.MethodGet, "/api/tasks/"+escape(id)+"/time-entries", nil, nil, &out)
	return out, err
}

// CreateTimeEntry records completed time.
func (c *Client) CreateTimeEntry(ctx context.Context, id string, minutes int) (task.TimeEntry, error) {
	var out task.TimeEntry
	_, err := c.do(ctx, http.MethodPost, "/api/tasks/"+escape(id)+"/time-entries", nil,
		TimeEntryRequest{Minutes: minutes}, &out)
	return out, err
}

// StartTimer starts a timer on a task.
func (c *Client) StartTimer(ctx context.Context, id string) (task.TimeEntry, error) {
	var out task.TimeEntry
	_, err := c.do(ctx, http.MethodPost, "/api/tasks/"+escape(id)+"/timer", nil, nil, &out)
	return out, err
}

// StopTimer stops a running entry.
func (c *Client) StopTimer(ctx context.Context, entryID string) (task.TimeEntry, error) {
	var out task.TimeEntry
	_, err := c.do(ctx, http.MethodPost, "/api/time-entries/"+escape(entryID)+"/stop", nil, nil, &out)
	return out, err
}

// GetRunningTimer returns the user's running entry, or nil.
func (c *Client) GetRunningTimer(ctx context.Context) (*task.TimeEntry, error) {
	var out task.TimeEntry
	found, err := c.do(ctx, http.MethodGet, "/api/timer", nil, nil, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// GetTaskActivity lists a task's history, oldest first.
func (c *Client) GetTaskActivity(ctx context.Context, id string) ([]task.ActivityEntry, error) {
	var out []task.ActivityEntry
	_, err := c.do(ctx, http.MethodGet, "/api/tasks/"+escape(id)+"/activity", nil, nil, &out)
	return out, err
}

// GetCalendarToken returns the user's feed token, or nil if none exists.
func (c *Client) GetCalendarToken(ctx context.Context) (*task.CalendarToken, error) {
	var out task.CalendarToken
	found, err := c.do(ctx, http.MethodGet, "/api/calendar/token", nil, nil, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// GenerateCalendarToken replaces the user's feed token.
func (c *Client) GenerateCalendarToken(ctx context.Context) (task.CalendarToken, error) {
	var out task.CalendarToken
	_, err := c.do(ctx, http.MethodPost, "/api/calendar/token", nil, nil, &out)
	return out, err
}
