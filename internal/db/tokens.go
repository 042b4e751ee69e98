package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// tokenBytes is the entropy of a calendar feed token.
const tokenBytes = 32

// CalendarToken returns userID's feed token, or nil if none was generated.
func (db *DB) CalendarToken(ctx context.Context, userID string) (*task.CalendarToken, error) {
	var t task.CalendarToken
	err := db.QueryRowContext(ctx,
		`SELECT id, token, user_id, created_at FROM calendar_tokens WHERE user_id = ?`, userID).
		Scan(&t.ID, &t.Token, &t.UserID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar token: %w", err)
	}
	return &t, nil
}

// RegenerateCalendarToken replaces userID's feed token. The old token stops
// resolving immediately.
func (db *DB) RegenerateCalendarToken(ctx context.Context, userID string) (task.CalendarToken, error) {
	secret, err := newToken()
	if err != nil {
		return task.CalendarToken{}, err
	}
	t := task.CalendarToken{ID: uuid.NewString(), Token: secret, UserID: userID, CreatedAt: db.now()}
	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to revoke calendar token: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_tokens (id, token, user_id, created_at) VALUES (?, ?, ?, ?)`,
			t.ID, t.Token, t.UserID, t.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert calendar token: %w", err)
		}
		return nil
	})
	if err != nil {
		return task.CalendarToken{}, err
	}
	return t, nil
}

// UserForCalendarToken resolves a feed token. Unknown tokens are NOT_FOUND.
func (db *DB) UserForCalendarToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := db.QueryRowContext(ctx, `SELECT user_id FROM calendar_tokens WHERE token = ?`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", clierr.New(clierr.NotFound, "calendar feed not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve calendar token: %w", err)
	}
	return userID, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
