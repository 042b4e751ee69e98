package clierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"conflict", New(Conflict, "timer running"), ClassConflict},
		{"task not found", Newf(TaskNotFound, "task %s not found", "t1"), ClassNotFound},
		{"wrapped transient", fmt.Errorf("moving: %w", New(TransientNetwork, "timeout")), ClassTransient},
		{"invalid input", New(InvalidInput, "bad"), ClassOther},
		{"plain error", errors.New("boom"), ClassOther},
		{"nil", nil, ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(TransientNetwork, cause, "get tasks: %v", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient class")
	}
	if CodeOf(err) != TransientNetwork {
		t.Fatalf("unexpected code %q", CodeOf(err))
	}
}

func TestExitCode(t *testing.T) {
	if New(InternalError, "x").ExitCode() != 2 {
		t.Fatalf("internal errors exit with 2")
	}
	if New(Conflict, "x").ExitCode() != 1 {
		t.Fatalf("other errors exit with 1")
	}
}
