// Package board derives presentation views from a board's task set.
// Every function here is pure: inputs are never modified.
package board

import (
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Unassigned matches tasks without an assignee when used as FilterOptions.AssigneeID.
const Unassigned = "-"

// FilterOptions defines which tasks to include.
type FilterOptions struct {
	Search        string // case-insensitive substring match across title and description
	AssigneeID    string
	Priorities    []task.Priority
	ShowCompleted bool
}

// Active reports whether any criterion would hide a task.
func (o FilterOptions) Active() bool {
	return o.Search != "" || o.AssigneeID != "" || len(o.Priorities) > 0 || !o.ShowCompleted
}

// Match reports whether t passes all criteria (AND logic).
func (o FilterOptions) Match(t task.Task) bool {
	if !o.ShowCompleted && t.Status == task.StatusDone {
		return false
	}
	if !matchesAssignee(t.AssigneeID, o.AssigneeID) {
		return false
	}
	if len(o.Priorities) > 0 && !containsPriority(o.Priorities, t.Priority) {
		return false
	}
	if o.Search != "" && !matchesSearch(t, o.Search) {
		return false
	}
	return true
}

// Filter returns the tasks matching opts, in input order.
func Filter(tasks []task.Task, opts FilterOptions) []task.Task {
	var result []task.Task
	for _, t := range tasks {
		if opts.Match(t) {
			result = append(result, t.Clone())
		}
	}
	return result
}

func matchesAssignee(assignee, want string) bool {
	switch want {
	case "":
		return true
	case Unassigned:
		return assignee == ""
	default:
		return assignee == want
	}
}

func matchesSearch(t task.Task, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func containsPriority(list []task.Priority, p task.Priority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
