package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// ValidSortFields returns the list of valid --sort field names.
func ValidSortFields() []string {
	return []string{"position", "title", fieldPriority, "due", "created", "updated", "time"}
}

// Sort sorts tasks by the given field. Priority sorts most urgent first.
func Sort(tasks []task.Task, field string, reverse bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if reverse {
			return compareTasks(tasks[j], tasks[i], field)
		}
		return compareTasks(tasks[i], tasks[j], field)
	})
}

func compareTasks(a, b task.Task, field string) bool {
	switch field {
	case "title":
		return a.Title < b.Title
	case fieldPriority:
		return a.Priority.Rank() > b.Priority.Rank()
	case "created":
		return a.CreatedAt.Before(b.CreatedAt)
	case "updated":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "due":
		return compareDue(a, b)
	case "time":
		return a.TotalTimeMinutes > b.TotalTimeMinutes
	default:
		return a.Position < b.Position
	}
}

func compareDue(a, b task.Task) bool {
	if a.DueDate == nil && b.DueDate == nil {
		return false
	}
	if a.DueDate == nil {
		return false // nil sorts last
	}
	if b.DueDate == nil {
		return true
	}
	return a.DueDate.Before(*b.DueDate)
}
