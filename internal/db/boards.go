package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// DefaultBoardName names the board provisioned for a new user.
const DefaultBoardName = "Tasks"

// DefaultColumns are created on every new board.
var DefaultColumns = []task.Column{
	{Name: "Backlog", Status: task.StatusBacklog, Color: "#6b7280"},
	{Name: "To Do", Status: task.StatusTodo, Color: "#3b82f6"},
	{Name: "In Progress", Status: task.StatusInProgress, Color: "#f59e0b", WIPLimit: 3},
	{Name: "Done", Status: task.StatusDone, Color: "#10b981"},
}

// Access describes what a user may do on a board.
type Access struct {
	Owner   bool
	Member  bool
	CanEdit bool
}

// EnsureDefaultBoard provisions a board with the default columns for a user
// who has none.
func (db *DB) EnsureDefaultBoard(ctx context.Context, userID string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM boards WHERE owner_id = ?`, userID).Scan(&n); err != nil {
			return fmt.Errorf("failed to count boards: %w", err)
		}
		if n > 0 {
			return nil
		}
		_, err := createBoard(ctx, tx, userID, DefaultBoardName, DefaultColumns, db.now())
		return err
	})
}

// CreateBoard adds a board owned by userID. An empty column list uses the defaults.
func (db *DB) CreateBoard(ctx context.Context, userID, name string, cols []task.Column) (task.Board, error) {
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	var b task.Board
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = createBoard(ctx, tx, userID, name, cols, db.now())
		return err
	})
	return b, err
}

func createBoard(ctx context.Context, q querier, owner, name string, cols []task.Column, now time.Time) (task.Board, error) {
	b := task.Board{ID: uuid.NewString(), Name: name, CanEdit: true}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO boards (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, owner, name, now); err != nil {
		return task.Board{}, fmt.Errorf("failed to insert board: %w", err)
	}
	for i, c := range cols {
		c.ID = uuid.NewString()
		c.BoardID = b.ID
		c.Position = i
		if _, err := q.ExecContext(ctx,
			`INSERT INTO columns (id, board_id, name, color, status, wip_limit, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.BoardID, c.Name, c.Color, string(c.Status), c.WIPLimit, c.Position); err != nil {
			return task.Board{}, fmt.Errorf("failed to insert column %q: %w", c.Name, err)
		}
		b.Columns = append(b.Columns, c)
	}
	return b, nil
}

// ListBoards returns the boards userID owns or is a member of, with columns.
func (db *DB) ListBoards(ctx context.Context, userID string) ([]task.Board, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.id, b.name, 1 FROM boards b WHERE b.owner_id = ?
		UNION ALL
		SELECT b.id, b.name, m.can_edit FROM boards b
		JOIN board_members m ON m.board_id = b.id
		WHERE m.user_id = ? AND b.owner_id <> ?
		ORDER BY 2, 1`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []task.Board
	for rows.Next() {
		var b task.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.CanEdit); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range boards {
		if boards[i].Columns, err = listColumns(ctx, db, boards[i].ID); err != nil {
			return nil, err
		}
	}
	return boards, nil
}

// BoardAccess reports userID's access to boardID. Unknown boards are
// BOARD_NOT_FOUND.
func (db *DB) BoardAccess(ctx context.Context, userID, boardID string) (Access, error) {
	var owner string
	err := db.QueryRowContext(ctx, `SELECT owner_id FROM boards WHERE id = ?`, boardID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Access{}, boardNotFound(boardID)
	}
	if err != nil {
		return Access{}, fmt.Errorf("failed to get board: %w", err)
	}
	if owner == userID {
		return Access{Owner: true, Member: true, CanEdit: true}, nil
	}
	var canEdit bool
	err = db.QueryRowContext(ctx,
		`SELECT can_edit FROM board_members WHERE board_id = ? AND user_id = ?`,
		boardID, userID).Scan(&canEdit)
	if errors.Is(err, sql.ErrNoRows) {
		return Access{}, nil
	}
	if err != nil {
		return Access{}, fmt.Errorf("failed to get membership: %w", err)
	}
	return Access{Member: true, CanEdit: canEdit}, nil
}

// ShareBoard grants userID access to boardID, replacing any existing grant.
func (db *DB) ShareBoard(ctx context.Context, boardID, userID string, canEdit bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO board_members (board_id, user_id, can_edit) VALUES (?, ?, ?)
		ON CONFLICT (board_id, user_id) DO UPDATE SET can_edit = excluded.can_edit`,
		boardID, userID, canEdit)
	if err != nil {
		return fmt.Errorf("failed to share board: %w", err)
	}
	return nil
}

// Columns returns a board's columns by position.
func (db *DB) Columns(ctx context.Context, boardID string) ([]task.Column, error) {
	return listColumns(ctx, db, boardID)
}

func listColumns(ctx context.Context, q querier, boardID string) ([]task.Column, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, board_id, name, color, status, wip_limit, position
		FROM columns WHERE board_id = ? ORDER BY position`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	var cols []task.Column
	for rows.Next() {
		var c task.Column
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Name, &c.Color, &c.Status, &c.WIPLimit, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func getColumn(ctx context.Context, q querier, id string) (task.Column, error) {
	var c task.Column
	err := q.QueryRowContext(ctx, `
		SELECT id, board_id, name, color, status, wip_limit, position
		FROM columns WHERE id = ?`, id).
		Scan(&c.ID, &c.BoardID, &c.Name, &c.Color, &c.Status, &c.WIPLimit, &c.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Column{}, clierr.Newf(clierr.NotFound, "column %s not found", id).
			WithDetails(map[string]any{"column_id": id})
	}
	if err != nil {
		return task.Column{}, fmt.Errorf("failed to get column: %w", err)
	}
	return c, nil
}

func boardNotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.BoardNotFound, "board %s not found", id).
		WithDetails(map[string]any{"board_id": id})
}
