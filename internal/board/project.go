package board

import (
	"sort"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// KanbanColumn is one column of the kanban view.
type KanbanColumn struct {
	Column task.Column `json:"column"`
	Tasks  []task.Task `json:"tasks"`
	// Total counts the column's tasks before filtering.
	Total int `json:"total"`
	// OverLimit is an advisory flag; nothing is blocked by it.
	OverLimit bool `json:"over_limit"`
}

// Hidden returns how many tasks the filter hid.
func (k KanbanColumn) Hidden() int { return k.Total - len(k.Tasks) }

// Kanban groups tasks by column in column order, each group sorted by
// position and then filtered. Tasks in unknown columns are dropped.
func Kanban(cols []task.Column, tasks []task.Task, opts FilterOptions) []KanbanColumn {
	ordered := append([]task.Column(nil), cols...)
	task.SortColumns(ordered)

	byColumn := make(map[string][]task.Task, len(ordered))
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t.Clone())
	}

	out := make([]KanbanColumn, 0, len(ordered))
	for _, c := range ordered {
		group := byColumn[c.ID]
		store.SortByPosition(group)
		kc := KanbanColumn{
			Column:    c,
			Tasks:     Filter(group, opts),
			Total:     len(group),
			OverLimit: c.WIPLimit > 0 && len(group) > c.WIPLimit,
		}
		if kc.Tasks == nil {
			kc.Tasks = []task.Task{}
		}
		out = append(out, kc)
	}
	return out
}

// CalendarDay is the set of tasks due on one local date.
type CalendarDay struct {
	Date  date.Date   `json:"date"`
	Tasks []task.Task `json:"tasks"`
}

// CalendarView is the calendar projection: the backlog side list plus
// dated tasks bucketed by day.
type CalendarView struct {
	Backlog []task.Task   `json:"backlog"`
	Days    []CalendarDay `json:"days"`
}

// Calendar partitions tasks into the backlog (tasks in the column tagged
// backlog, dated or not) and day buckets keyed by the local date of the due
// timestamp in loc. Other tasks without a due date are left out.
func Calendar(cols []task.Column, tasks []task.Task, opts FilterOptions, loc *time.Location) CalendarView {
	backlogCols := make(map[string]bool)
	for _, c := range cols {
		if c.Status == task.StatusBacklog {
			backlogCols[c.ID] = true
		}
	}

	view := CalendarView{Backlog: []task.Task{}, Days: []CalendarDay{}}
	buckets := make(map[date.Date][]task.Task)
	for _, t := range Filter(tasks, opts) {
		switch {
		case backlogCols[t.ColumnID]:
			view.Backlog = append(view.Backlog, t)
		case t.DueDate != nil:
			d := date.Of(*t.DueDate, loc)
			buckets[d] = append(buckets[d], t)
		}
	}
	store.SortByPosition(view.Backlog)

	days := make([]date.Date, 0, len(buckets))
	for d := range buckets {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j].Time) })
	for _, d := range days {
		group := buckets[d]
		sort.SliceStable(group, func(i, j int) bool { return dueLess(group[i], group[j]) })
		view.Days = append(view.Days, CalendarDay{Date: d, Tasks: group})
	}
	return view
}

// Day returns the tasks due on d.
func (v CalendarView) Day(d date.Date) []task.Task {
	for _, day := range v.Days {
		if day.Date == d {
			return day.Tasks
		}
	}
	return nil
}

// Window returns a copy of v limited to days in [from, to]. A zero bound is open.
func (v CalendarView) Window(from, to date.Date) CalendarView {
	out := CalendarView{Backlog: v.Backlog, Days: []CalendarDay{}}
	for _, day := range v.Days {
		if !from.IsZero() && day.Date.Before(from.Time) {
			continue
		}
		if !to.IsZero() && day.Date.After(to.Time) {
			continue
		}
		out.Days = append(out.Days, day)
	}
	return out
}

func dueLess(a, b task.Task) bool {
	if !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ID < b.ID
}
