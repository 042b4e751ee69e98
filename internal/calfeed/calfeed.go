// Package calfeed manages the token behind a user's calendar subscription URL.
package calfeed

import (
	"context"
	"net/url"
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// FeedPath is the path prefix the server serves feeds under.
const FeedPath = "/calendar/"

// Backend is the calendar token part of the server API.
type Backend interface {
	GetCalendarToken(ctx context.Context) (*task.CalendarToken, error)
	GenerateCalendarToken(ctx context.Context) (task.CalendarToken, error)
}

// Manager fetches and rotates the token and builds feed URLs.
type Manager struct {
	backend Backend
	baseURL string
}

// New returns a manager whose URLs start at baseURL.
func New(b Backend, baseURL string) *Manager {
	return &Manager{backend: b, baseURL: strings.TrimRight(baseURL, "/")}
}

// Token returns the current token, or nil if none was ever generated.
func (m *Manager) Token(ctx context.Context) (*task.CalendarToken, error) {
	return m.backend.GetCalendarToken(ctx)
}

// Regenerate replaces the token. The previous feed URL stops working.
func (m *Manager) Regenerate(ctx context.Context) (task.CalendarToken, error) {
	return m.backend.GenerateCalendarToken(ctx)
}

// Ensure returns the current token, generating one on first use.
func (m *Manager) Ensure(ctx context.Context) (task.CalendarToken, error) {
	tok, err := m.Token(ctx)
	if err != nil {
		return task.CalendarToken{}, err
	}
	if tok != nil {
		return *tok, nil
	}
	return m.Regenerate(ctx)
}

// FeedURL returns the subscription URL for token.
func (m *Manager) FeedURL(token task.CalendarToken) string {
	return FeedURL(m.baseURL, token.Token)
}

// FeedURL joins base and token into a feed URL.
func FeedURL(base, token string) string {
	return strings.TrimRight(base, "/") + FeedPath + url.PathEscape(token) + ".ics"
}

// TokenFromPath extracts the token from a feed path segment such as "abc.ics".
func TokenFromPath(segment string) (string, bool) {
	tok, ok := strings.CutSuffix(segment, ".ics")
	if !ok || tok == "" {
		return "", false
	}
	unescaped, err := url.PathUnescape(tok)
	if err != nil {
		return "", false
	}
	return unescaped, true
}
