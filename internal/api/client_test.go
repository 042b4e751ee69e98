package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithToken("tok"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	b, _ := sonic.Marshal(v)
	_, _ = w.Write(b)
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://x"} {
		if _, err := New(u); clierr.CodeOf(err) != clierr.InvalidInput {
			t.Fatalf("New(%q) err = %v", u, err)
		}
	}
}

func TestGetTasksSendsQueryAndToken(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []task.Task{{ID: "t1", Title: "One", Position: 2}})
	})
	tasks, err := c.GetTasks(context.Background(), task.Query{BoardID: "b1", IncludeCompleted: true})
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if gotPath != "/api/boards/b1/tasks" || gotQuery != "include_completed=true" {
		t.Fatalf("path=%q query=%q", gotPath, gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].Position != 2 {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestMoveSendsBody(t *testing.T) {
	var got MoveRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks/t1/move" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.MoveTask(context.Background(), "t1", task.Placement{ColumnID: "done", Index: 3, IncludeCompleted: true}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got.ColumnID != "done" || got.Index != 3 || !got.IncludeCompleted {
		t.Fatalf("body = %+v", got)
	}
}

func TestAssignNullUnassigns(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
		writeJSON(w, http.StatusOK, task.Task{ID: "t1"})
	})
	if _, err := c.AssignTask(context.Background(), "t1", nil); err != nil {
		t.Fatal(err)
	}
	if raw != `{"assignee_id":null}` {
		t.Fatalf("body = %s", raw)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   string
	}{
		{"conflict body", http.StatusConflict, map[string]string{"error": "timer running", "code": "CONFLICT"}, clierr.Conflict},
		{"task not found", http.StatusNotFound, map[string]string{"error": "gone", "code": "TASK_NOT_FOUND"}, clierr.TaskNotFound},
		{"bare 404", http.StatusNotFound, nil, clierr.NotFound},
		{"unknown code on 409", http.StatusConflict, map[string]string{"error": "x", "code": "SOMETHING_NEW"}, clierr.Conflict},
		{"bad request", http.StatusBadRequest, map[string]string{"error": "bad", "code": "INVALID_PRIORITY"}, clierr.InvalidPriority},
		{"unauthorized", http.StatusUnauthorized, nil, clierr.Unauthorized},
		{"server error", http.StatusBadGateway, nil, clierr.TransientNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.CompleteTask(context.Background(), "t1")
			if got := clierr.CodeOf(err); got != tt.want {
				t.Fatalf("code = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestUnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetBoards(context.Background()); !clierr.IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestNoContentMeansNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	e, err := c.GetRunningTimer(context.Background())
	if err != nil || e != nil {
		t.Fatalf("running = %+v, err = %v", e, err)
	}
	tok, err := c.GetCalendarToken(context.Background())
	if err != nil || tok != nil {
		t.Fatalf("token = %+v, err = %v", tok, err)
	}
}

func TestCalendarFeedURL(t *testing.T) {
	c, err := New("https://tasks.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.CalendarFeedURL("abc"); got != "https://tasks.example.com/calendar/abc.ics" {
		t.Fatalf("feed url = %q", got)
	}
}
