package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const entrySelect = `SELECT id, task_id, user_id, duration_minutes, started_at, created_at FROM time_entries`

func scanEntry(s scanner) (task.TimeEntry, error) {
	var (
		e       task.TimeEntry
		minutes sql.NullInt64
		started sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.TaskID, &e.UserID, &minutes, &started, &e.CreatedAt); err != nil {
		return task.TimeEntry{}, err
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		e.DurationMinutes = &m
	}
	if started.Valid {
		st := started.Time.UTC()
		e.StartedAt = &st
	}
	return e, nil
}

// ListTimeEntries returns a task's entries, newest first.
func (db *DB) ListTimeEntries(ctx context.Context, taskID string) ([]task.TimeEntry, error) {
	if _, err := getTask(ctx, db, taskID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, entrySelect+` WHERE task_id = ? ORDER BY created_at DESC, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []task.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CreateTimeEntry records minutes of completed work.
func (db *DB) CreateTimeEntry(ctx context.Context, userID, taskID string, minutes int) (task.TimeEntry, error) {
	if err := task.ValidateMinutes(minutes); err != nil {
		return task.TimeEntry{}, err
	}
	e := task.TimeEntry{ID: uuid.NewString(), TaskID: taskID, UserID: userID, DurationMinutes: &minutes}
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTask(ctx, tx, taskID); err != nil {
			return err
		}
		e.CreatedAt = db.now()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO time_entries (id, task_id, user_id, duration_minutes, created_at) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.TaskID, e.UserID, minutes, e.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert time entry: %w", err)
		}
		return addActivity(ctx, tx, taskID, userID, fmt.Sprintf("logged %d min", minutes), e.CreatedAt)
	})
	if err != nil {
		return task.TimeEntry{}, err
	}
	return e, nil
}

// RunningTimer returns userID's running entry, or nil.
func (db *DB) RunningTimer(ctx context.Context, userID string) (*task.TimeEntry, error) {
	return runningTimer(ctx, db, userID)
}

func runningTimer(ctx context.Context, q querier, userID string) (*task.TimeEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx,
		entrySelect+` WHERE user_id = ? AND duration_minutes IS NULL`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running timer: %w", err)
	}
	return &e, nil
}

// StartTimer opens a running entry. A user has at most one; a second start
// is a CONFLICT carrying the running entry.
func (db *DB) StartTimer(ctx context.Context, userID, taskID string) (task.TimeEntry, error) {
	var e task.TimeEntry
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTask(ctx, tx, taskID); err != nil {
			return err
		}
		running, err := runningTimer(ctx, tx, userID)
		if err != nil {
			return err
		}
		if running != nil {
			return timerConflict(*running)
		}

		now := db.now()
		e = task.TimeEntry{ID: uuid.NewString(), TaskID: taskID, UserID: userID, StartedAt: &now, CreatedAt: now}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO time_entries (id, task_id, user_id, started_at, created_at) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.TaskID, e.UserID, now, now); err != nil {
			if isUniqueViolation(err) {
				return clierr.New(clierr.Conflict, "a timer is already running")
			}
			return fmt.Errorf("failed to start timer: %w", err)
		}
		return addActivity(ctx, tx, taskID, userID, "started timer", now)
	})
	if err != nil {
		return task.TimeEntry{}, err
	}
	return e, nil
}

// StopTimer closes a running entry. The duration is the elapsed time
// rounded up to whole minutes, at least one. Stopping a stopped entry is a
// CONFLICT; another user's entry is ENTRY_NOT_FOUND.
func (db *DB) StopTimer(ctx context.Context, userID, entryID string) (task.TimeEntry, error) {
	var e task.TimeEntry
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		e, err = scanEntry(tx.QueryRowContext(ctx, entrySelect+` WHERE id = ?`, entryID))
		if errors.Is(err, sql.ErrNoRows) || (err == nil && e.UserID != userID) {
			return clierr.Newf(clierr.EntryNotFound, "time entry %s not found", entryID).
				WithDetails(map[string]any{"entry_id": entryID})
		}
		if err != nil {
			return fmt.Errorf("failed to get time entry: %w", err)
		}
		if !e.Running() {
			return clierr.Newf(clierr.Conflict, "time entry %s is not running", entryID).
				WithDetails(map[string]any{"entry_id": entryID})
		}

		now := db.now()
		started := e.CreatedAt
		if e.StartedAt != nil {
			started = *e.StartedAt
		}
		minutes := ElapsedMinutes(started, now)
		e.DurationMinutes = &minutes
		if _, err := tx.ExecContext(ctx,
			`UPDATE time_entries SET duration_minutes = ? WHERE id = ?`, minutes, e.ID); err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}
		return addActivity(ctx, tx, e.TaskID, userID, fmt.Sprintf("stopped timer after %d min", minutes), now)
	})
	if err != nil {
		return task.TimeEntry{}, err
	}
	return e, nil
}

// ElapsedMinutes rounds the time between start and end up to whole
// minutes, with a floor of one.
func ElapsedMinutes(start, end time.Time) int {
	m := int(math.Ceil(end.Sub(start).Minutes()))
	return max(m, 1)
}

func timerConflict(running task.TimeEntry) *clierr.Error {
	return clierr.Newf(clierr.Conflict, "a timer is already running on task %s", running.TaskID).
		WithDetails(map[string]any{"entry_id": running.ID, "task_id": running.TaskID})
}

// ListComments returns a task's comments, oldest first.
func (db *DB) ListComments(ctx context.Context, taskID string) ([]task.Comment, error) {
	if _, err := getTask(ctx, db, taskID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, author_id, content, edited, created_at
		FROM comments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []task.Comment
	for rows.Next() {
		var c task.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.Edited, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateComment appends a comment to a task.
func (db *DB) CreateComment(ctx context.Context, authorID, taskID, content string) (task.Comment, error) {
	if err := task.ValidateComment(content); err != nil {
		return task.Comment{}, err
	}
	c := task.Comment{ID: uuid.NewString(), TaskID: taskID, AuthorID: authorID, Content: content}
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTask(ctx, tx, taskID); err != nil {
			return err
		}
		c.CreatedAt = db.now()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, task_id, author_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.TaskID, c.AuthorID, c.Content, c.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		return addActivity(ctx, tx, taskID, authorID, "commented", c.CreatedAt)
	})
	if err != nil {
		return task.Comment{}, err
	}
	return c, nil
}

// ListActivity returns a task's history, oldest first.
func (db *DB) ListActivity(ctx context.Context, taskID string) ([]task.ActivityEntry, error) {
	if _, err := getTask(ctx, db, taskID); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, actor, description, created_at
		FROM activity WHERE task_id = ? ORDER BY created_at, rowid`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var out []task.ActivityEntry
	for rows.Next() {
		var a task.ActivityEntry
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Actor, &a.Description, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func addActivity(ctx context.Context, q querier, taskID, actor, desc string, at time.Time) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO activity (id, task_id, actor, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), taskID, actor, desc, at); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
