package calfeed

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	productID = "-//taskboard//calendar feed//EN"

	// EventLength is the span given to each due-date event.
	EventLength = 30 * time.Minute
)

// EventUID returns the stable UID of a task's event.
func EventUID(taskID string) string { return taskID + "@taskboard" }

// Render builds the VCALENDAR for tasks. Undated tasks are skipped.
func Render(name string, tasks []task.Task, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		due := t.DueDate.UTC()
		ev := cal.AddEvent(EventUID(t.ID))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(due)
		ev.SetEndAt(due.Add(EventLength))
		ev.SetSummary(t.Title)
		if t.Description != "" {
			ev.SetDescription(t.Description)
		}
		if !t.UpdatedAt.IsZero() {
			ev.SetModifiedAt(t.UpdatedAt.UTC())
		}
	}
	return cal.Serialize()
}
