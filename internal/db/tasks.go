package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/ordering"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// taskSelect reads a task with its derived counters.
const taskSelect = `
	SELECT t.id, t.board_id, t.column_id, t.title, t.description, t.priority, t.status,
		t.due_date, t.assignee_id, t.position, t.created_at, t.updated_at,
		(SELECT COALESCE(SUM(e.duration_minutes), 0) FROM time_entries e WHERE e.task_id = t.id),
		(SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id)
	FROM tasks t`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (task.Task, error) {
	var (
		t        task.Task
		due      sql.NullTime
		assignee sql.NullString
	)
	err := s.Scan(&t.ID, &t.BoardID, &t.ColumnID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&due, &assignee, &t.Position, &t.CreatedAt, &t.UpdatedAt,
		&t.TotalTimeMinutes, &t.CommentCount)
	if err != nil {
		return task.Task{}, err
	}
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	t.AssigneeID = assignee.String
	return t, nil
}

func queryTasks(ctx context.Context, q querier, where string, args ...any) ([]task.Task, error) {
	rows, err := q.QueryContext(ctx, taskSelect+" "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func getTask(ctx context.Context, q querier, id string) (task.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, taskSelect+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.NotFound(id)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns a board's tasks in column then position order. Done
// tasks are left out unless includeCompleted is set.
func (db *DB) ListTasks(ctx context.Context, boardID string, includeCompleted bool) ([]task.Task, error) {
	where := `JOIN columns col ON col.id = t.column_id WHERE t.board_id = ?`
	if !includeCompleted {
		where += ` AND t.status <> 'done'`
	}
	where += ` ORDER BY col.position, t.position, t.id`
	return queryTasks(ctx, db, where, boardID)
}

// GetTask returns one task.
func (db *DB) GetTask(ctx context.Context, id string) (task.Task, error) {
	return getTask(ctx, db, id)
}

// CreateTask inserts a task at the end of its column. An empty column id
// resolves to the board's default column.
func (db *DB) CreateTask(ctx context.Context, actor string, f task.Fields) (task.Task, error) {
	if err := task.ValidateFields(f); err != nil {
		return task.Task{}, err
	}
	var id string
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		cols, err := listColumns(ctx, tx, f.BoardID)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return boardNotFound(f.BoardID)
		}
		col, ok := task.DefaultColumn(cols, f.ColumnID)
		if !ok {
			return columnNotOnBoard(f.ColumnID, f.BoardID)
		}
		siblings, err := columnSiblings(ctx, tx, col.ID, "")
		if err != nil {
			return err
		}

		now := db.now()
		t := task.Task{
			ID:          uuid.NewString(),
			BoardID:     f.BoardID,
			ColumnID:    col.ID,
			Title:       f.Title,
			Description: f.Description,
			Priority:    f.Priority,
			Status:      task.StatusTodo,
			DueDate:     f.DueDate,
			AssigneeID:  f.AssigneeID,
			Position:    ordering.Append(siblings),
		}
		if t.Priority == "" {
			t.Priority = task.PriorityMedium
		}
		task.SyncStatus(&t, col)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, board_id, column_id, title, description, priority, status,
				due_date, assignee_id, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.BoardID, t.ColumnID, t.Title, t.Description, string(t.Priority), string(t.Status),
			nullTime(t.DueDate), nullString(t.AssigneeID), t.Position, now, now); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		id = t.ID
		return addActivity(ctx, tx, t.ID, actor, fmt.Sprintf("created in %s", col.Name), now)
	})
	if err != nil {
		return task.Task{}, err
	}
	return db.GetTask(ctx, id)
}

// UpdateTask applies a patch. A status change moves the task to the end of
// the column tagged with that status, if the board has one.
func (db *DB) UpdateTask(ctx context.Context, actor, id string, p task.Patch) (task.Task, error) {
	if err := task.ValidatePatch(p); err != nil {
		return task.Task{}, err
	}
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		before := t
		p.Apply(&t)

		if t.Status != before.Status {
			cols, err := listColumns(ctx, tx, t.BoardID)
			if err != nil {
				return err
			}
			if col, ok := task.ColumnByStatus(cols, t.Status); ok && col.ID != t.ColumnID {
				siblings, err := columnSiblings(ctx, tx, col.ID, t.ID)
				if err != nil {
					return err
				}
				t.ColumnID, t.Position = col.ID, ordering.Append(siblings)
			}
		}

		now := db.now()
		if err := writeTask(ctx, tx, t, now); err != nil {
			return err
		}
		return addActivity(ctx, tx, t.ID, actor, describePatch(before, t), now)
	})
	if err != nil {
		return task.Task{}, err
	}
	return db.GetTask(ctx, id)
}

// DeleteTask removes a task and returns it as it was.
func (db *DB) DeleteTask(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if t, err = getTask(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	return t, err
}

// MoveTask places a task in to.ColumnID. The index counts the target column
// without the moved task, and without done tasks unless to.IncludeCompleted
// is set, so it means the same as on the caller's task list. Siblings are
// renumbered as needed and the status follows the column tag.
func (db *DB) MoveTask(ctx context.Context, actor, id string, to task.Placement) (task.Task, error) {
	columnID := to.ColumnID
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		col, err := getColumn(ctx, tx, columnID)
		if err != nil {
			return err
		}
		if col.BoardID != t.BoardID {
			return columnNotOnBoard(columnID, t.BoardID)
		}

		siblings, err := columnSiblings(ctx, tx, col.ID, t.ID)
		if err != nil {
			return err
		}
		index := to.Index
		if !to.IncludeCompleted {
			done, err := doneTaskIDs(ctx, tx, col.ID)
			if err != nil {
				return err
			}
			index = countedIndex(siblings, done, index)
		}
		res := ordering.InsertionPositions(siblings, index)
		for sid, pos := range res.Resequenced {
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET position = ? WHERE id = ?`, pos, sid); err != nil {
				return fmt.Errorf("failed to shift task %s: %w", sid, err)
			}
		}

		from := t.ColumnID
		t.ColumnID, t.Position = col.ID, res.Moved
		task.SyncStatus(&t, col)

		now := db.now()
		if err := writeTask(ctx, tx, t, now); err != nil {
			return err
		}
		desc := "reordered in " + col.Name
		if from != col.ID {
			desc = "moved to " + col.Name
		}
		return addActivity(ctx, tx, t.ID, actor, desc, now)
	})
	if err != nil {
		return task.Task{}, err
	}
	return db.GetTask(ctx, id)
}

// CompleteTask marks a task done and moves it to the end of the done column.
// Completing a done task is a no-op.
func (db *DB) CompleteTask(ctx context.Context, actor, id string) (task.Task, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		cols, err := listColumns(ctx, tx, t.BoardID)
		if err != nil {
			return err
		}
		done, hasDone := task.DoneColumn(cols)
		if t.Status == task.StatusDone && (!hasDone || t.ColumnID == done.ID) {
			return nil
		}

		t.Status = task.StatusDone
		if hasDone && t.ColumnID != done.ID {
			siblings, err := columnSiblings(ctx, tx, done.ID, t.ID)
			if err != nil {
				return err
			}
			t.ColumnID, t.Position = done.ID, ordering.Append(siblings)
		}

		now := db.now()
		if err := writeTask(ctx, tx, t, now); err != nil {
			return err
		}
		return addActivity(ctx, tx, t.ID, actor, "completed", now)
	})
	if err != nil {
		return task.Task{}, err
	}
	return db.GetTask(ctx, id)
}

// AssignTask sets the assignee. A nil user clears it.
func (db *DB) AssignTask(ctx context.Context, actor, id string, userID *string) (task.Task, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		desc := "unassigned"
		t.AssigneeID = ""
		if userID != nil && *userID != "" {
			t.AssigneeID = *userID
			desc = "assigned to " + *userID
		}
		now := db.now()
		if err := writeTask(ctx, tx, t, now); err != nil {
			return err
		}
		return addActivity(ctx, tx, t.ID, actor, desc, now)
	})
	if err != nil {
		return task.Task{}, err
	}
	return db.GetTask(ctx, id)
}

// FeedTasks returns the dated tasks on every board userID can see, by due date.
func (db *DB) FeedTasks(ctx context.Context, userID string) ([]task.Task, error) {
	return queryTasks(ctx, db, `
		JOIN boards b ON b.id = t.board_id
		WHERE t.due_date IS NOT NULL
		AND (b.owner_id = ? OR EXISTS (
			SELECT 1 FROM board_members m WHERE m.board_id = b.id AND m.user_id = ?))
		ORDER BY t.due_date, t.id`, userID, userID)
}

func writeTask(ctx context.Context, q querier, t task.Task, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET column_id = ?, title = ?, description = ?, priority = ?, status = ?,
			due_date = ?, assignee_id = ?, position = ?, updated_at = ?
		WHERE id = ?`,
		t.ColumnID, t.Title, t.Description, string(t.Priority), string(t.Status),
		nullTime(t.DueDate), nullString(t.AssigneeID), t.Position, now, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	return nil
}

// columnSiblings lists a column's tasks in display order, leaving out skipID.
func columnSiblings(ctx context.Context, q querier, columnID, skipID string) ([]ordering.Sibling, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, position FROM tasks WHERE column_id = ? AND id <> ? ORDER BY position, id`,
		columnID, skipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list column tasks: %w", err)
	}
	defer rows.Close()

	var out []ordering.Sibling
	for rows.Next() {
		var s ordering.Sibling
		if err := rows.Scan(&s.ID, &s.Position); err != nil {
			return nil, fmt.Errorf("failed to scan sibling: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func doneTaskIDs(ctx context.Context, q querier, columnID string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM tasks WHERE column_id = ? AND status = 'done'`, columnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list done tasks: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan done task: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// countedIndex maps an index over the siblings not in hidden onto all
// siblings: the task goes right before the index-th counted sibling, or last
// when there is none.
func countedIndex(siblings []ordering.Sibling, hidden map[string]bool, index int) int {
	index = max(index, 0)
	seen := 0
	for i, s := range siblings {
		if hidden[s.ID] {
			continue
		}
		if seen == index {
			return i
		}
		seen++
	}
	return len(siblings)
}

func describePatch(before, after task.Task) string {
	switch {
	case before.Status != after.Status:
		return fmt.Sprintf("status changed from %s to %s", before.Status, after.Status)
	case before.Title != after.Title:
		return fmt.Sprintf("renamed to %q", after.Title)
	case before.Priority != after.Priority:
		return fmt.Sprintf("priority changed from %s to %s", before.Priority, after.Priority)
	case !sameDue(before.DueDate, after.DueDate):
		if after.DueDate == nil {
			return "due date cleared"
		}
		return "due date set to " + after.DueDate.Format("2006-01-02 15:04")
	default:
		return "updated"
	}
}

func sameDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func columnNotOnBoard(columnID, boardID string) *clierr.Error {
	return clierr.Newf(clierr.NotFound, "column %s not found on board %s", columnID, boardID).
		WithDetails(map[string]any{"column_id": columnID, "board_id": boardID})
}
