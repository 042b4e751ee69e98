package board

import (
	"sort"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	fieldAssignee = "assignee"
	fieldPriority = "priority"
	fieldStatus   = "status"
	fieldColumn   = "column"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Field  string         `json:"field"`
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key     string         `json:"key"`
	Columns map[string]int `json:"columns"`
	Total   int            `json:"total"`
	Minutes int            `json:"tracked_minutes"`
}

// GroupBy groups tasks by field and counts them per column name.
func GroupBy(b task.Board, tasks []task.Task, field string) GroupedSummary {
	colName := make(map[string]string, len(b.Columns))
	colPos := make(map[string]int, len(b.Columns))
	for _, c := range b.Columns {
		colName[c.ID] = c.Name
		colPos[c.Name] = c.Position
	}

	groups := make(map[string]*GroupSummary)
	for _, t := range tasks {
		key := groupKey(t, field, colName)
		g, ok := groups[key]
		if !ok {
			g = &GroupSummary{Key: key, Columns: map[string]int{}}
			groups[key] = g
		}
		g.Total++
		g.Minutes += t.TotalTimeMinutes
		if name, ok := colName[t.ColumnID]; ok {
			g.Columns[name]++
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortGroupKeys(keys, field, colPos)

	result := GroupedSummary{Field: field, Groups: make([]GroupSummary, 0, len(keys))}
	for _, k := range keys {
		result.Groups = append(result.Groups, *groups[k])
	}
	return result
}

func groupKey(t task.Task, field string, colName map[string]string) string {
	switch field {
	case fieldAssignee:
		if t.AssigneeID == "" {
			return "(unassigned)"
		}
		return t.AssigneeID
	case fieldPriority:
		return string(t.Priority)
	case fieldStatus:
		return string(t.Status)
	case fieldColumn:
		if name, ok := colName[t.ColumnID]; ok {
			return name
		}
		return "(unknown)"
	default:
		return "(all)"
	}
}

func sortGroupKeys(keys []string, field string, colPos map[string]int) {
	switch field {
	case fieldPriority:
		sort.SliceStable(keys, func(i, j int) bool {
			return task.Priority(keys[i]).Rank() > task.Priority(keys[j]).Rank()
		})
	case fieldStatus:
		sort.SliceStable(keys, func(i, j int) bool {
			return statusIndex(task.Status(keys[i])) < statusIndex(task.Status(keys[j]))
		})
	case fieldColumn:
		sort.SliceStable(keys, func(i, j int) bool { return colPos[keys[i]] < colPos[keys[j]] })
	default:
		sort.Strings(keys)
	}
}

func statusIndex(s task.Status) int {
	for i, v := range task.Statuses {
		if v == s {
			return i
		}
	}
	return len(task.Statuses)
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{fieldAssignee, fieldPriority, fieldStatus, fieldColumn}
}
