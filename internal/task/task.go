// Package task defines the board data model shared by the client and the server.
package task

import (
	"time"
)

// Priority is a task priority.
type Priority string

// Priorities, lowest first.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank returns the index of p in Priorities, or -1.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return -1
}

// Status is the workflow status of a task. Columns may carry one as a tag.
type Status string

// Statuses in workflow order.
const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

// Board is one kanban workspace.
type Board struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	CanEdit bool     `json:"can_edit"`
	Columns []Column `json:"columns"`
}

// Column is a named bucket within a board.
type Column struct {
	ID       string `json:"id"`
	BoardID  string `json:"board_id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Status   Status `json:"status,omitempty"`
	WIPLimit int    `json:"wip_limit,omitempty"`
	Position int    `json:"position"`
}

// Task is a card on the board.
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"board_id"`
	ColumnID    string     `json:"column_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	Position    float64    `json:"position"`

	// Maintained by the server.
	TotalTimeMinutes int `json:"total_time_minutes"`
	CommentCount     int `json:"comment_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

// TimeEntry is tracked time on a task. A running entry has no duration yet.
type TimeEntry struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	UserID          string     `json:"user_id"`
	DurationMinutes *int       `json:"duration_minutes"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Running reports whether the entry is an active timer.
func (e TimeEntry) Running() bool { return e.DurationMinutes == nil }

// Minutes returns the recorded duration, or 0 while running.
func (e TimeEntry) Minutes() int {
	if e.DurationMinutes == nil {
		return 0
	}
	return *e.DurationMinutes
}

// Comment is a note on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Edited    bool      `json:"edited"`
}

// ActivityEntry is a server-generated history line.
type ActivityEntry struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Actor       string    `json:"actor"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CalendarToken grants read access to a user's calendar feed.
type CalendarToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Fields are the inputs of a create call.
type Fields struct {
	BoardID     string     `json:"board_id"`
	ColumnID    string     `json:"column_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ClearDue    bool       `json:"clear_due,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.DueDate == nil && !p.ClearDue
}

// Apply writes the patch onto t.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ClearDue {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
}

// Query selects the tasks of one board.
type Query struct {
	BoardID          string
	IncludeCompleted bool
}

// Placement is a move destination. Index counts the tasks of ColumnID
// without the moved one. Unless IncludeCompleted is set, done tasks are not
// counted, matching a task list fetched without them; an index at or past
// the end of the counted tasks places the task last in the column.
type Placement struct {
	ColumnID         string
	Index            int
	IncludeCompleted bool
}
