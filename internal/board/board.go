package board

import (
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// ColumnSummary holds metrics for a single column.
type ColumnSummary struct {
	ColumnID  string      `json:"column_id"`
	Name      string      `json:"name"`
	Status    task.Status `json:"status,omitempty"`
	Count     int         `json:"count"`
	WIPLimit  int         `json:"wip_limit,omitempty"`
	OverLimit bool        `json:"over_limit"`
	Overdue   int         `json:"overdue"`
	Minutes   int         `json:"tracked_minutes"`
}

// PriorityCount holds a count for a priority level.
type PriorityCount struct {
	Priority task.Priority `json:"priority"`
	Count    int           `json:"count"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardName      string          `json:"board_name"`
	TotalTasks     int             `json:"total_tasks"`
	TrackedMinutes int             `json:"tracked_minutes"`
	Columns        []ColumnSummary `json:"columns"`
	Priorities     []PriorityCount `json:"priorities"`
}

// Summary computes a board summary from all tasks.
func Summary(b task.Board, tasks []task.Task, now time.Time) Overview {
	cols := append([]task.Column(nil), b.Columns...)
	task.SortColumns(cols)

	byID := make(map[string]*ColumnSummary, len(cols))
	summaries := make([]ColumnSummary, len(cols))
	for i, c := range cols {
		summaries[i] = ColumnSummary{ColumnID: c.ID, Name: c.Name, Status: c.Status, WIPLimit: c.WIPLimit}
		byID[c.ID] = &summaries[i]
	}

	prio := make(map[task.Priority]int, len(task.Priorities))
	var minutes int
	for _, t := range tasks {
		minutes += t.TotalTimeMinutes
		prio[t.Priority]++
		cs, ok := byID[t.ColumnID]
		if !ok {
			continue
		}
		cs.Count++
		cs.Minutes += t.TotalTimeMinutes
		if IsOverdue(t, now) {
			cs.Overdue++
		}
	}
	for i := range summaries {
		s := &summaries[i]
		s.OverLimit = s.WIPLimit > 0 && s.Count > s.WIPLimit
	}

	priorities := make([]PriorityCount, 0, len(task.Priorities))
	for i := len(task.Priorities) - 1; i >= 0; i-- {
		p := task.Priorities[i]
		priorities = append(priorities, PriorityCount{Priority: p, Count: prio[p]})
	}

	return Overview{
		BoardName:      b.Name,
		TotalTasks:     len(tasks),
		TrackedMinutes: minutes,
		Columns:        summaries,
		Priorities:     priorities,
	}
}

// IsOverdue reports whether an open task is past its due timestamp.
func IsOverdue(t task.Task, now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != task.StatusDone
}

// CheckWIPLimit reports whether moving a task from currentColumnID into col
// would take col over its limit. The result is a warning for the caller to
// show; moves are never refused because of it.
func CheckWIPLimit(col task.Column, counts map[string]int, currentColumnID string) *clierr.Error {
	if col.WIPLimit == 0 || currentColumnID == col.ID {
		return nil
	}
	if next := counts[col.ID] + 1; next > col.WIPLimit {
		return task.WIPWarning(col.Name, col.WIPLimit, next)
	}
	return nil
}

// CountByColumn returns the number of tasks in each column.
func CountByColumn(tasks []task.Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[t.ColumnID]++
	}
	return counts
}

// ParseIDs splits a comma-separated id list into deduplicated ids.
func ParseIDs(arg string) ([]string, error) {
	parts := strings.Split(arg, ",")
	seen := make(map[string]bool, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, " /?#") {
			return nil, task.ValidateTaskID(p)
		}
		if !seen[p] {
			ids = append(ids, p)
			seen[p] = true
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no valid task IDs provided")
	}
	return ids, nil
}
