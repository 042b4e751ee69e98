package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// beginDrag picks up the selected card.
func (b *Board) beginDrag() {
	t := b.selectedTask()
	if t == nil || !b.requireEdit() {
		return
	}
	g, ok := b.sess.Drag.Begin(t.ID)
	if !ok {
		return
	}
	b.gesture = g
	b.mode = modeDrag
	b.dragCol = b.activeCol
	b.dragRow = b.activeRow
	b.notice = "moving " + t.Title + " (arrows to move, enter to drop, esc to cancel)"
}

func (b *Board) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "left":
		if b.dragCol > 0 {
			b.dragCol--
			b.dragRow = min(b.dragRow, len(b.dropSlots(b.dragCol)))
		}
	case "l", "right":
		if b.dragCol < len(b.columns)-1 {
			b.dragCol++
			b.dragRow = min(b.dragRow, len(b.dropSlots(b.dragCol)))
		}
	case "j", "down":
		if b.dragRow < len(b.dropSlots(b.dragCol)) {
			b.dragRow++
		}
	case "k", "up":
		if b.dragRow > 0 {
			b.dragRow--
		}
	case keyEnter:
		return b, b.drop()
	case keyEsc, "q":
		b.gesture.Cancel()
		b.endDrag()
		b.notice = ""
		return b, nil
	default:
		return b, nil
	}
	b.gesture.Hover(b.dragTarget())
	return b, nil
}

// drop applies the move locally and sends it.
func (b *Board) drop() tea.Cmd {
	g := b.gesture
	target := b.dragTarget()
	src := g.Source()

	warn := board.CheckWIPLimit(b.columns[b.dragCol].Column,
		board.CountByColumn(b.sess.Store.Tasks()), src.ColumnID)

	pending := g.Drop(target)
	b.gesture = nil
	b.mode = modeBoard
	b.notice = ""
	b.rebuildSelecting(g.TaskID())
	if pending == nil {
		return nil
	}
	return b.run(func(ctx context.Context) opMsg {
		if err := pending.Commit(ctx); err != nil {
			return opMsg{err: err}
		}
		return opMsg{done: "moved", warn: warn}
	})
}

func (b *Board) endDrag() {
	b.gesture = nil
	b.mode = modeBoard
	b.rebuild()
}

// dropSlots returns the visible tasks of column ci without the dragged card.
func (b *Board) dropSlots(ci int) []task.Task {
	if ci < 0 || ci >= len(b.columns) {
		return nil
	}
	var out []task.Task
	for _, t := range b.columns[ci].Tasks {
		if b.gesture == nil || t.ID != b.gesture.TaskID() {
			out = append(out, t)
		}
	}
	return out
}

// dragTarget converts the hover row, which counts visible cards only, into
// an index over the whole column so filtered-out siblings keep their place.
// Hovering over the card's own slot is its source, whatever is hidden around it.
func (b *Board) dragTarget() drag.Target {
	colID := b.columns[b.dragCol].Column.ID
	src := b.gesture.Source()
	if src.ColumnID == colID && b.dragRow == b.visibleRow(b.dragCol, b.gesture.TaskID()) {
		return src
	}
	full := b.sess.Store.GetByColumn(colID)
	var siblings []string
	for _, t := range full {
		if t.ID != b.gesture.TaskID() {
			siblings = append(siblings, t.ID)
		}
	}
	slots := b.dropSlots(b.dragCol)
	return drag.Target{ColumnID: colID, Index: fullIndex(siblings, slots, b.dragRow)}
}

// visibleRow returns the row of id among the visible cards of column ci, or -1.
func (b *Board) visibleRow(ci int, id string) int {
	for i, t := range b.columns[ci].Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func fullIndex(siblings []string, visible []task.Task, row int) int {
	indexOf := func(id string) int {
		for i, s := range siblings {
			if s == id {
				return i
			}
		}
		return len(siblings)
	}
	switch {
	case len(visible) == 0:
		return len(siblings)
	case row < len(visible):
		return indexOf(visible[row].ID)
	default:
		return min(indexOf(visible[len(visible)-1].ID)+1, len(siblings))
	}
}

// displayTasks returns the cards to draw in column ci. While dragging the
// picked-up card is drawn at the hover location instead of its origin.
func (b *Board) displayTasks(ci int) (tasks []task.Task, dragIdx int) {
	if b.mode != modeDrag || b.gesture == nil {
		return b.columns[ci].Tasks, -1
	}
	slots := b.dropSlots(ci)
	if ci != b.dragCol {
		return slots, -1
	}
	moved, ok := b.sess.Store.Get(b.gesture.TaskID())
	if !ok {
		return slots, -1
	}
	row := min(b.dragRow, len(slots))
	out := make([]task.Task, 0, len(slots)+1)
	out = append(out, slots[:row]...)
	out = append(out, moved)
	out = append(out, slots[row:]...)
	return out, row
}
