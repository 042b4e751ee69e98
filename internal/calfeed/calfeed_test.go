package calfeed

import (
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

type stubBackend struct {
	current   *task.CalendarToken
	generated int
}

func (s *stubBackend) GetCalendarToken(context.Context) (*task.CalendarToken, error) {
	return s.current, nil
}

func (s *stubBackend) GenerateCalendarToken(context.Context) (task.CalendarToken, error) {
	s.generated++
	tok := task.CalendarToken{ID: "tok", Token: "secret-" + string(rune('0'+s.generated)), UserID: "u1"}
	s.current = &tok
	return tok, nil
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		base, token, want string
	}{
		{"https://app.example.com", "abc123", "https://app.example.com/calendar/abc123.ics"},
		{"https://app.example.com/", "abc123", "https://app.example.com/calendar/abc123.ics"},
		{"http://localhost:8080", "a/b", "http://localhost:8080/calendar/a%2Fb.ics"},
	}
	for _, tt := range tests {
		if got := FeedURL(tt.base, tt.token); got != tt.want {
			t.Errorf("FeedURL(%q, %q) = %q, want %q", tt.base, tt.token, got, tt.want)
		}
	}
}

func TestTokenFromPath(t *testing.T) {
	if tok, ok := TokenFromPath("a%2Fb.ics"); !ok || tok != "a/b" {
		t.Fatalf("got %q %v", tok, ok)
	}
	for _, bad := range []string{"abc", ".ics", ""} {
		if _, ok := TokenFromPath(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestEnsureGeneratesOnce(t *testing.T) {
	b := &stubBackend{}
	m := New(b, "https://app.example.com")
	ctx := context.Background()

	first, err := m.Ensure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Ensure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b.generated != 1 || first.Token != second.Token {
		t.Fatalf("expected a single generation, got %d (%s, %s)", b.generated, first.Token, second.Token)
	}
}

func TestRegenerateChangesURL(t *testing.T) {
	b := &stubBackend{}
	m := New(b, "https://app.example.com")
	ctx := context.Background()
	old, _ := m.Ensure(ctx)
	fresh, _ := m.Regenerate(ctx)
	if m.FeedURL(old) == m.FeedURL(fresh) {
		t.Fatalf("regeneration must change the feed URL")
	}
	cur, _ := m.Token(ctx)
	if cur == nil || cur.Token != fresh.Token {
		t.Fatalf("current token = %+v", cur)
	}
}

func TestRenderSkipsUndatedTasks(t *testing.T) {
	due := time.Date(2026, 2, 10, 16, 0, 0, 0, time.FixedZone("CET", 3600))
	out := Render("Ops", []task.Task{
		{ID: "t1", Title: "Board meeting", Description: "Q1 numbers", DueDate: &due},
		{ID: "t2", Title: "Someday"},
	}, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"UID:t1@taskboard",
		"SUMMARY:Board meeting",
		"DESCRIPTION:Q1 numbers",
		"DTSTART:20260210T150000Z",
		"DTEND:20260210T153000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Someday") {
		t.Errorf("undated task should not appear:\n%s", out)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if n := len(cal.Events()); n != 1 {
		t.Fatalf("events = %d, want 1", n)
	}
}
