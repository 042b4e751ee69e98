package task

import (
	"sort"
	"strings"
)

// SortColumns orders columns by position.
func SortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
}

// FindColumn returns the column with the given id.
func FindColumn(cols []Column, id string) (Column, bool) {
	for _, c := range cols {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnByStatus returns the first column tagged with status. When none is
// tagged, a column whose name matches one of names (case-insensitive) is used.
func ColumnByStatus(cols []Column, status Status, names ...string) (Column, bool) {
	for _, c := range cols {
		if c.Status == status {
			return c, true
		}
	}
	for _, c := range cols {
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(c.Name), n) {
				return c, true
			}
		}
	}
	return Column{}, false
}

// DefaultColumn resolves where a new task lands: the explicit id, else the
// "To Do" column, else the first column.
func DefaultColumn(cols []Column, explicit string) (Column, bool) {
	if explicit != "" {
		return FindColumn(cols, explicit)
	}
	if c, ok := ColumnByStatus(cols, StatusTodo, "To Do", "Todo"); ok {
		return c, true
	}
	if len(cols) == 0 {
		return Column{}, false
	}
	first := cols[0]
	for _, c := range cols[1:] {
		if c.Position < first.Position {
			first = c
		}
	}
	return first, true
}

// DoneColumn returns the column completed tasks move to, if the board has one.
func DoneColumn(cols []Column) (Column, bool) {
	return ColumnByStatus(cols, StatusDone, "Done")
}

// SyncStatus updates t.Status from the column tag. Untagged columns leave
// the status alone.
func SyncStatus(t *Task, col Column) {
	if col.Status != "" {
		t.Status = col.Status
	}
}
