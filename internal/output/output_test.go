package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func init() {
	DisableColor()
	SetLocation(time.UTC)
}

func TestDetect(t *testing.T) {
	t.Setenv(EnvFormat, "")
	if got := Detect(false, false, false); got != FormatTable {
		t.Errorf("default = %v, want table", got)
	}
	if got := Detect(true, true, true); got != FormatJSON {
		t.Errorf("json flag wins, got %v", got)
	}
	if got := Detect(false, true, true); got != FormatCompact {
		t.Errorf("compact before table, got %v", got)
	}
	t.Setenv(EnvFormat, "oneline")
	if got := Detect(false, false, false); got != FormatCompact {
		t.Errorf("env oneline = %v, want compact", got)
	}
	if got := Detect(false, true, false); got != FormatTable {
		t.Errorf("flag beats env, got %v", got)
	}
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	JSONError(&buf, "TASK_NOT_FOUND", "task t1 not found", map[string]any{"task_id": "t1"})

	var resp ErrorResponse
	if err := sonic.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if resp.Code != "TASK_NOT_FOUND" || resp.Details["task_id"] != "t1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int]string{0: "0m", 45: "45m", 60: "1h 0m", 95: "1h 35m"}
	for in, want := range tests {
		if got := FormatMinutes(in); got != want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
	if got := FormatElapsed(time.Hour + 2*time.Minute + 3*time.Second); got != "01:02:03" {
		t.Errorf("FormatElapsed = %q", got)
	}
	if got := FormatElapsed(-time.Second); got != "00:00:00" {
		t.Errorf("negative elapsed = %q", got)
	}
}

func TestKanbanTableShowsLimitsAndHidden(t *testing.T) {
	cols := []board.KanbanColumn{{
		Column:    task.Column{ID: "c1", Name: "In Progress", WIPLimit: 1},
		Tasks:     []task.Task{{ID: "t1", Title: "Ship it", Priority: task.PriorityHigh, AssigneeID: "ana"}},
		Total:     2,
		OverLimit: true,
	}}
	var buf bytes.Buffer
	KanbanTable(&buf, cols)
	out := buf.String()
	for _, want := range []string{"In Progress (2/1)", "over WIP limit", "1 hidden", "Ship it", "@ana", "t1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCompactTaskLine(t *testing.T) {
	due := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	tasks := []task.Task{{
		ID: "t1", ColumnID: "c1", Title: "Invoice", Priority: task.PriorityUrgent,
		DueDate: &due, TotalTimeMinutes: 90,
	}}
	var buf bytes.Buffer
	TaskCompact(&buf, tasks, []task.Column{{ID: "c1", Name: "To Do"}})
	want := "t1 [To Do/urgent] Invoice due:2026-02-10T15:00 time:1h 30m\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	s := strings.Repeat("ü", 10)
	if got := truncate(s, 10); got != s {
		t.Errorf("truncate should keep %q, got %q", s, got)
	}
	if got := truncate(s, 6); got != "üüü..." {
		t.Errorf("truncate = %q", got)
	}
}
